// Package livestatus mirrors the active timer into a status file and
// desktop notifications.
package livestatus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/events"
	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/report"
)

// Status is the content of the status file.
type Status struct {
	TimerID        string     `json:"timer_id,omitempty"`
	Name           string     `json:"name,omitempty"`
	Color          string     `json:"color,omitempty"`
	Icon           string     `json:"icon,omitempty"`
	Running        bool       `json:"running"`
	SegmentStart   *time.Time `json:"segment_start,omitempty"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	TodaySeconds   float64    `json:"today_seconds"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Active reports whether a timer is open.
func (s Status) Active() bool {
	return s.TimerID != ""
}

// ElapsedAt projects the elapsed time of the active timer to now.
func (s Status) ElapsedAt(now time.Time) float64 {
	if s.Running && s.SegmentStart != nil {
		if seg := now.Sub(*s.SegmentStart).Seconds(); seg > 0 {
			return s.ElapsedSeconds + seg
		}
	}
	return s.ElapsedSeconds
}

// TodayAt projects today's total to now.
func (s Status) TodayAt(now time.Time) float64 {
	return s.TodaySeconds + s.ElapsedAt(now) - s.ElapsedSeconds
}

// Title is the one-line summary shown by the tray and the status command.
func (s Status) Title(now time.Time) string {
	if !s.Active() {
		return "Today " + FormatClock(s.TodayAt(now))
	}

	state := "Paused"
	if s.Running {
		state = "Running"
	}
	return fmt.Sprintf("%s %s %s", state, s.Name, FormatClock(s.ElapsedAt(now)))
}

// TodayTotaler computes the seconds tracked today.
type TodayTotaler interface {
	TodayTotal(ctx context.Context) (float64, error)
}

// Writer keeps the status file in sync with session events.
type Writer struct {
	path   string
	totals TodayTotaler
	logger *zap.Logger
	now    models.Clock

	latest report.Latest[float64]

	mu   sync.Mutex
	last Status
	seen uint64
}

// NewWriter creates a writer for path. totals may be nil.
func NewWriter(path string, totals TodayTotaler, logger *zap.Logger) *Writer {
	return &Writer{path: path, totals: totals, logger: logger, now: time.Now}
}

// Last returns the most recently written status.
func (w *Writer) Last() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Handle is an events.Handler.
func (w *Writer) Handle(ev events.Event) {
	switch ev.Type {
	case events.TimerStarted, events.TimerPaused, events.TimerResumed,
		events.TimerStopped, events.TimerResynced:
	default:
		return
	}

	// drop events older than one already handled, before they can cancel
	// the newer total below
	if !w.admit(ev.Seq) {
		return
	}

	today := 0.0
	if w.totals != nil {
		total, ok, err := w.latest.Do(context.Background(), w.totals.TodayTotal)
		if !ok {
			// a newer event is refreshing the file
			return
		}
		if err != nil {
			w.logger.Warn("Failed to compute today's total", zap.Error(err))
		}
		today = total
	}

	s := Status{TodaySeconds: today, UpdatedAt: w.now()}
	if ev.Type != events.TimerStopped {
		s = fromRecord(ev.Timer, s)
	}

	if err := w.write(ev.Seq, s); err != nil {
		w.logger.Warn("Failed to write status file", zap.String("path", w.path), zap.Error(err))
	}
}

// admit records seq as the newest event seen. Unsequenced events are always
// admitted.
func (w *Writer) admit(seq uint64) bool {
	if seq == 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if seq <= w.seen {
		w.logger.Debug("Dropping stale session event", zap.Uint64("seq", seq), zap.Uint64("seen", w.seen))
		return false
	}
	w.seen = seq
	return true
}

// Clear removes the status file.
func (w *Writer) Clear() error {
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func fromRecord(rec models.TimerRecord, s Status) Status {
	s.TimerID = rec.ID.String()
	s.Name = rec.Name
	s.Running = rec.IsRunning
	s.ElapsedSeconds = rec.ElapsedAt(s.UpdatedAt)

	if rec.IsRunning {
		at := s.UpdatedAt
		s.SegmentStart = &at
	}

	if tag, ok := rec.MainTag(); ok {
		s.Color = tag.Color
		s.Icon = tag.Icon
	}
	return s
}

// write replaces the status file with s unless an event newer than seq has
// been admitted meanwhile.
func (w *Writer) write(seq uint64, s Status) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != 0 && seq < w.seen {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}

	tmp := w.path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	defer func() {
		if ferr := f.Close(); ferr != nil && err == nil {
			err = ferr
		}
		if err == nil {
			err = os.Rename(tmp, w.path)
		}
		if err == nil {
			w.last = s
		}
	}()

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(f)
	if _, err = writer.Write(b); err != nil {
		return err
	}

	return writer.Flush()
}

// ReadStatus reads a status file. A missing file is an idle status.
func ReadStatus(path string) (Status, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(b, &s); err != nil {
		return Status{}, fmt.Errorf("invalid status file %s: %w", path, err)
	}
	return s, nil
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
