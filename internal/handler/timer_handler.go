package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/repository"
	"Mansoor88-6/timekeeper/internal/session"
)

// controller surface the API drives
type Sessions interface {
	Active() *models.TimerRecord
	StartTimer(ctx context.Context, tag models.Tag) (*models.TimerRecord, error)
	PauseTimer(ctx context.Context) (*models.TimerRecord, error)
	ResumeTimer(ctx context.Context) (*models.TimerRecord, error)
	StopTimer(ctx context.Context) (*models.TimerRecord, error)
}

// body of POST /api/v1/timers/start, Tag is an id or a name
type StartTimerRequest struct {
	Tag string `json:"tag"`
}

// Changed is false when the request did not apply to the current state,
// Warning is set when the change was kept in memory but not saved
type TimerResponse struct {
	Timer   *models.TimerRecord `json:"timer"`
	Changed bool                `json:"changed"`
	Warning string              `json:"warning,omitempty"`
}

type TimerHandler struct {
	sessions Sessions
	storage  repository.Storage
	logger   *zap.Logger
}

func NewTimerHandler(sessions Sessions, storage repository.Storage, logger *zap.Logger) *TimerHandler {
	return &TimerHandler{
		sessions: sessions,
		storage:  storage,
		logger:   logger,
	}
}

func (h *TimerHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	active := h.sessions.Active()
	writeJSON(w, http.StatusOK, TimerResponse{Timer: active})
}

func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Tag == "" {
		http.Error(w, "Missing tag", http.StatusBadRequest)
		return
	}

	tag, err := repository.FindTag(r.Context(), h.storage, req.Tag)
	if errors.Is(err, repository.ErrTagNotFound) {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to look up tag", zap.Error(err))
		http.Error(w, "Failed to look up tag", http.StatusInternalServerError)
		return
	}

	rec, err := h.sessions.StartTimer(r.Context(), tag)
	h.respond(w, rec, err)
}

func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.PauseTimer)
}

func (h *TimerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.ResumeTimer)
}

func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.StopTimer)
}

func (h *TimerHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context) (*models.TimerRecord, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rec, err := fn(r.Context())
	h.respond(w, rec, err)
}

func (h *TimerHandler) respond(w http.ResponseWriter, rec *models.TimerRecord, err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrPersist):
		writeJSON(w, http.StatusOK, TimerResponse{Timer: rec, Changed: true, Warning: err.Error()})
		return
	case errors.Is(err, session.ErrTimerActive):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, session.ErrNoActiveStorage):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	default:
		h.logger.Error("Timer operation failed", zap.Error(err))
		http.Error(w, "Timer operation failed", http.StatusInternalServerError)
		return
	}

	if rec == nil {
		writeJSON(w, http.StatusOK, TimerResponse{Timer: h.sessions.Active()})
		return
	}

	writeJSON(w, http.StatusOK, TimerResponse{Timer: rec, Changed: true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
