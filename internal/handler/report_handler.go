package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/history"
	"Mansoor88-6/timekeeper/internal/insights"
	"Mansoor88-6/timekeeper/internal/repository"
	"Mansoor88-6/timekeeper/internal/report"
	"Mansoor88-6/timekeeper/internal/timeline"
)

const defaultHistoryDays = 7

// read side of report.Service used by the API
type Reports interface {
	History(ctx context.Context, q report.HistoryQuery) (history.Result, error)
	Insights(ctx context.Context, q report.InsightsQuery) ([]insights.TagInsight, error)
}

// body of GET /api/v1/insights
type InsightsResponse struct {
	Day          string                `json:"day"`
	TotalTracked float64               `json:"total_tracked_seconds"`
	Items        []insights.TagInsight `json:"items"`
}

type ReportHandler struct {
	reports  Reports
	storage  repository.Storage
	defaults report.InsightsQuery
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// defaults fills bucket switches the query leaves out
func NewReportHandler(reports Reports, storage repository.Storage, defaults report.InsightsQuery, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}

	return &ReportHandler{
		reports:  reports,
		storage:  storage,
		defaults: defaults,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// ?from=YYYY-MM-DD&to=YYYY-MM-DD&tag=<id|name>, to inclusive and defaulting
// to today, from defaulting to a week before to
func (h *ReportHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	to, err := h.parseDay(query.Get("to"))
	if err != nil {
		http.Error(w, "Invalid to parameter", http.StatusBadRequest)
		return
	}
	to = to.AddDate(0, 0, 1)

	from := to.AddDate(0, 0, -defaultHistoryDays)
	if v := query.Get("from"); v != "" {
		if from, err = h.parseDay(v); err != nil {
			http.Error(w, "Invalid from parameter", http.StatusBadRequest)
			return
		}
	}

	q := report.HistoryQuery{From: from, To: to}

	if ref := query.Get("tag"); ref != "" {
		tag, err := repository.FindTag(r.Context(), h.storage, ref)
		if errors.Is(err, repository.ErrTagNotFound) {
			http.Error(w, "Tag not found", http.StatusNotFound)
			return
		}
		if err != nil {
			h.logger.Error("Failed to look up tag", zap.Error(err))
			http.Error(w, "Failed to look up tag", http.StatusInternalServerError)
			return
		}
		q.TagID = &tag.ID
	}

	res, err := h.reports.History(r.Context(), q)
	if err != nil {
		h.logger.Error("Failed to build history", zap.Error(err))
		http.Error(w, "Failed to build history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ?day=YYYY-MM-DD&untracked=bool&sleep=bool&workouts=bool
func (h *ReportHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	day, err := h.parseDay(query.Get("day"))
	if err != nil {
		http.Error(w, "Invalid day parameter", http.StatusBadRequest)
		return
	}

	q := h.defaults
	q.Day = day

	for name, dst := range map[string]*bool{
		"untracked": &q.ShowUntracked,
		"sleep":     &q.IncludeSleep,
		"workouts":  &q.IncludeWorkouts,
	} {
		v := query.Get(name)
		if v == "" {
			continue
		}
		if *dst, err = strconv.ParseBool(v); err != nil {
			http.Error(w, "Invalid "+name+" parameter", http.StatusBadRequest)
			return
		}
	}

	items, err := h.reports.Insights(r.Context(), q)
	if err != nil {
		h.logger.Error("Failed to compute insights", zap.Error(err))
		http.Error(w, "Failed to compute insights", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, InsightsResponse{
		Day:          timeline.DayKey(day, h.loc),
		TotalTracked: insights.TotalTracked(items),
		Items:        items,
	})
}

// empty means today
func (h *ReportHandler) parseDay(v string) (time.Time, error) {
	if v == "" {
		return timeline.StartOfDay(h.now(), h.loc), nil
	}
	return time.ParseInLocation(timeline.DayKeyLayout, v, h.loc)
}
