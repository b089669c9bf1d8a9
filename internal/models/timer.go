package models

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidInterval is returned when a manual entry ends before it starts.
var ErrInvalidInterval = errors.New("end time must be after start time")

// Clock returns the current wall-clock time.
type Clock func() time.Time

// TimerRecord is the persisted shape of a Timer.
type TimerRecord struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	CreatedAt           time.Time  `json:"creation_date"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	TotalElapsedSeconds float64    `json:"total_elapsed_seconds"`
	IsRunning           bool       `json:"is_running"`
	Tags                []Tag      `json:"tags"`
}

// MainTag returns the first associated tag.
func (r TimerRecord) MainTag() (Tag, bool) {
	if len(r.Tags) == 0 {
		return Tag{}, false
	}
	return r.Tags[0], true
}

// Closed reports whether the timer has an end time.
func (r TimerRecord) Closed() bool {
	return r.EndTime != nil
}

// ElapsedAt returns the elapsed seconds at the given instant.
func (r TimerRecord) ElapsedAt(now time.Time) float64 {
	elapsed := r.TotalElapsedSeconds
	if r.IsRunning && r.StartTime != nil {
		if seg := now.Sub(*r.StartTime).Seconds(); seg > 0 {
			elapsed += seg
		}
	}
	return elapsed
}

// Timer is the single mutable unit of tracked time. All methods are safe
// for concurrent use; transitions on a closed timer are no-ops.
type Timer struct {
	mu  sync.RWMutex
	rec TimerRecord
	now Clock
}

// NewTimer creates an idle timer for the given tag.
func NewTimer(tag Tag, clock Clock) *Timer {
	if clock == nil {
		clock = time.Now
	}

	return &Timer{
		rec: TimerRecord{
			ID:        uuid.New(),
			Name:      tag.Name,
			CreatedAt: clock(),
			Tags:      []Tag{tag},
		},
		now: clock,
	}
}

// NewManualTimer creates a closed timer covering [start, end).
func NewManualTimer(tag Tag, start, end time.Time, clock Clock) (*Timer, error) {
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}

	t := NewTimer(tag, clock)
	t.rec.CreatedAt = start
	t.rec.EndTime = &end
	t.rec.TotalElapsedSeconds = end.Sub(start).Seconds()

	return t, nil
}

// TimerFromRecord rebuilds a Timer from its persisted shape.
func TimerFromRecord(rec TimerRecord, clock Clock) *Timer {
	if clock == nil {
		clock = time.Now
	}

	rec.Tags = append([]Tag(nil), rec.Tags...)

	// running and startTime must agree
	if rec.StartTime == nil {
		rec.IsRunning = false
	} else if !rec.IsRunning {
		rec.StartTime = nil
	}

	return &Timer{rec: rec, now: clock}
}

// ID returns the timer id.
func (t *Timer) ID() uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec.ID
}

// Running reports whether an in-progress segment exists.
func (t *Timer) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec.IsRunning
}

// Closed reports whether the timer has been stopped for good.
func (t *Timer) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec.EndTime != nil
}

// Snapshot returns a copy of the persisted state.
func (t *Timer) Snapshot() TimerRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec := t.rec
	rec.Tags = append([]Tag(nil), t.rec.Tags...)
	if t.rec.StartTime != nil {
		s := *t.rec.StartTime
		rec.StartTime = &s
	}
	if t.rec.EndTime != nil {
		e := *t.rec.EndTime
		rec.EndTime = &e
	}

	return rec
}

// CurrentElapsed returns accumulated seconds plus the in-progress segment.
func (t *Timer) CurrentElapsed() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec.ElapsedAt(t.now())
}

// Start begins a segment. It returns false if nothing changed.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rec.IsRunning || t.rec.EndTime != nil {
		return false
	}

	now := t.now()
	t.rec.StartTime = &now
	t.rec.IsRunning = true

	return true
}

// Resume begins a new segment, keeping the accumulated total.
func (t *Timer) Resume() bool {
	return t.Start()
}

// Pause folds the in-progress segment into the accumulated total.
func (t *Timer) Pause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.rec.IsRunning {
		return false
	}

	t.foldLocked(t.now())

	return true
}

// Stop closes the timer. Stopping a closed timer is a no-op.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rec.EndTime != nil {
		return false
	}

	now := t.now()
	if t.rec.IsRunning {
		t.foldLocked(now)
	}

	t.rec.EndTime = &now
	t.rec.IsRunning = false

	return true
}

// Reset clears all timing state. Only meant for unsaved manual-entry drafts.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rec.StartTime = nil
	t.rec.EndTime = nil
	t.rec.TotalElapsedSeconds = 0
	t.rec.IsRunning = false
}

func (t *Timer) foldLocked(now time.Time) {
	if t.rec.StartTime != nil {
		if seg := now.Sub(*t.rec.StartTime).Seconds(); seg > 0 {
			t.rec.TotalElapsedSeconds += seg
		}
	}

	t.rec.StartTime = nil
	t.rec.IsRunning = false
}
