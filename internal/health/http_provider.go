package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/models"
)

// HTTPProvider reads samples from a JSON export service.
type HTTPProvider struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPProvider creates a provider for baseURL.
func NewHTTPProvider(baseURL, token string, timeout time.Duration, logger *zap.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type sleepResponse struct {
	Samples []models.SleepSample `json:"samples"`
}

type workoutResponse struct {
	Workouts []models.WorkoutRecord `json:"workouts"`
}

func (p *HTTPProvider) FetchSleepSamples(ctx context.Context, r DateRange) ([]models.SleepSample, error) {
	var resp sleepResponse
	if err := p.get(ctx, "/api/v1/sleep", r, &resp); err != nil {
		return nil, err
	}
	return resp.Samples, nil
}

func (p *HTTPProvider) FetchWorkoutRecords(ctx context.Context, r DateRange) ([]models.WorkoutRecord, error) {
	var resp workoutResponse
	if err := p.get(ctx, "/api/v1/workouts", r, &resp); err != nil {
		return nil, err
	}
	return resp.Workouts, nil
}

// HealthCheck checks if the source is reachable.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health check failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, r DateRange, out interface{}) error {
	q := url.Values{}
	q.Set("from", r.From.Format(time.RFC3339))
	q.Set("to", r.To.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	startTime := time.Now()
	resp, err := p.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		p.logger.Error("Health request failed",
			zap.Error(err),
			zap.String("path", path),
			zap.Duration("duration", duration),
		)
		return fmt.Errorf("%w: request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		p.logger.Debug("Health data fetched",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", duration),
		)
		return nil
	}

	errMsg := fmt.Sprintf("health source returned status %d: %s", resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		p.logger.Warn("Health data access denied",
			zap.Int("status_code", resp.StatusCode),
		)
		return &StatusError{Message: errMsg, StatusCode: resp.StatusCode, kind: ErrPermissionDenied}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500:
		p.logger.Warn("Health source unavailable",
			zap.Int("status_code", resp.StatusCode),
		)
		return &StatusError{Message: errMsg, StatusCode: resp.StatusCode, kind: ErrUnavailable}
	default:
		p.logger.Error("Health request rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return &StatusError{Message: errMsg, StatusCode: resp.StatusCode}
	}
}

// StatusError is a non-2xx response from the health source.
type StatusError struct {
	Message    string
	StatusCode int
	kind       error
}

func (e *StatusError) Error() string {
	return e.Message
}

func (e *StatusError) Unwrap() error {
	return e.kind
}
