// Package report loads data for history and insights and runs the
// aggregators over it.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Mansoor88-6/timekeeper/internal/health"
	"Mansoor88-6/timekeeper/internal/history"
	"Mansoor88-6/timekeeper/internal/insights"
	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/repository"
	"Mansoor88-6/timekeeper/internal/timeline"
)

// Service reads storage and the health provider.
type Service struct {
	storage  repository.Storage
	provider health.Provider
	logger   *zap.Logger
	loc      *time.Location
	now      models.Clock
}

// NewService creates a report service. A nil provider means no health data.
func NewService(storage repository.Storage, provider health.Provider, loc *time.Location, logger *zap.Logger) *Service {
	if provider == nil {
		provider = health.Nop{}
	}
	if loc == nil {
		loc = time.Local
	}

	return &Service{
		storage:  storage,
		provider: provider,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for in-progress timers.
func (s *Service) SetClock(clock models.Clock) {
	s.now = clock
}

// HistoryQuery selects the days shown by History.
type HistoryQuery struct {
	From  time.Time
	To    time.Time
	TagID *uuid.UUID
}

// InsightsQuery selects the day and buckets shown by Insights.
type InsightsQuery struct {
	Day             time.Time
	ShowUntracked   bool
	IncludeSleep    bool
	IncludeWorkouts bool
}

type snapshot struct {
	timers   []models.TimerRecord
	sleep    []models.SleepSample
	workouts []models.WorkoutRecord
}

// History builds day sections for the query range.
func (s *Service) History(ctx context.Context, q HistoryQuery) (history.Result, error) {
	r := health.DateRange{From: q.From, To: q.To}

	snap, err := s.load(ctx, r, true, true)
	if err != nil {
		return history.Result{}, err
	}

	return history.Build(history.Input{
		Timers:    snap.timers,
		Sleep:     snap.sleep,
		Workouts:  snap.workouts,
		TagFilter: q.TagID,
		Location:  s.loc,
		Now:       s.now(),
	}), nil
}

// Insights computes the tag distribution for one day.
func (s *Service) Insights(ctx context.Context, q InsightsQuery) ([]insights.TagInsight, error) {
	from, to := insights.Window(q.Day, s.loc)

	snap, err := s.load(ctx, health.DateRange{From: from, To: to}, q.IncludeSleep, q.IncludeWorkouts)
	if err != nil {
		return nil, err
	}

	return insights.Compute(insights.Input{
		Day:             q.Day,
		Location:        s.loc,
		Timers:          snap.timers,
		Sleep:           snap.sleep,
		Workouts:        snap.workouts,
		IncludeSleep:    q.IncludeSleep,
		IncludeWorkouts: q.IncludeWorkouts,
		ShowUntracked:   q.ShowUntracked,
	}), nil
}

// TodayTotal returns the seconds tracked today, including a running timer.
func (s *Service) TodayTotal(ctx context.Context) (float64, error) {
	now := s.now()
	start := timeline.StartOfDay(now, s.loc)

	timers, err := s.storage.FetchTimers(ctx, repository.TimerFilter{From: start, To: start.AddDate(0, 0, 1)})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch timers: %w", err)
	}

	total := 0.0
	for _, t := range timers {
		total += t.ElapsedAt(now)
	}
	return total, nil
}

// load fetches every data kind concurrently. Health failures degrade to
// empty data; storage failures are returned.
func (s *Service) load(ctx context.Context, r health.DateRange, sleep, workouts bool) (snapshot, error) {
	var snap snapshot

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		timers, err := s.storage.FetchTimers(gctx, repository.TimerFilter{From: r.From, To: r.To})
		if err != nil {
			return fmt.Errorf("failed to fetch timers: %w", err)
		}
		snap.timers = timers
		return nil
	})

	if sleep {
		g.Go(func() error {
			samples, err := s.provider.FetchSleepSamples(gctx, r)
			if err != nil {
				s.degrade("sleep", err)
				return nil
			}
			snap.sleep = samples
			return nil
		})
	}

	if workouts {
		g.Go(func() error {
			records, err := s.provider.FetchWorkoutRecords(gctx, r)
			if err != nil {
				s.degrade("workouts", err)
				return nil
			}
			snap.workouts = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Service) degrade(kind string, err error) {
	reason := "query_failed"
	switch {
	case errors.Is(err, health.ErrPermissionDenied):
		reason = "permission_denied"
	case errors.Is(err, health.ErrUnavailable):
		reason = "unavailable"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	}

	s.logger.Warn("Health data degraded to empty",
		zap.String("kind", kind),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
