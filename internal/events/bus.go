// Package events fans session changes out to subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/models"
)

// Type names an event.
type Type string

const (
	TimerStarted      Type = "timer_started"
	TimerPaused       Type = "timer_paused"
	TimerResumed      Type = "timer_resumed"
	TimerStopped      Type = "timer_stopped"
	TimerResynced     Type = "timer_resynced"
	PersistenceFailed Type = "persistence_failed"
)

// Event is published after the session state has changed.
//
// Seq orders events from one controller by commit time. Events delivered
// concurrently may arrive out of order; subscribers that keep state should
// drop an event whose Seq is not above the last one they applied. Zero
// means unsequenced.
type Event struct {
	Type         Type               `json:"type"`
	Seq          uint64             `json:"seq,omitempty"`
	At           time.Time          `json:"at"`
	Timer        models.TimerRecord `json:"timer"`
	Running      bool               `json:"running"`
	FinalElapsed float64            `json:"final_elapsed_seconds,omitempty"`
	Err          string             `json:"error,omitempty"`
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id uuid.UUID
	fn Handler
}

// Bus is a synchronous publish/subscribe hub.
type Bus struct {
	logger *zap.Logger
	mu     sync.Mutex
	subs   []subscription
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) func() {
	id := uuid.New()

	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every subscriber in registration order. Panicking
// subscribers are logged and skipped.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	b.logger.Debug("Publishing event",
		zap.String("type", string(ev.Type)),
		zap.String("timer_id", ev.Timer.ID.String()),
		zap.Int("subscribers", len(subs)),
	)

	for _, s := range subs {
		b.deliver(s, ev)
	}
}

// Count returns the number of subscribers.
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event subscriber panicked",
				zap.String("type", string(ev.Type)),
				zap.Any("panic", r),
			)
		}
	}()

	s.fn(ev)
}
