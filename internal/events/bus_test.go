package events

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishOrderAndUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var got []string
	bus.Subscribe(func(ev Event) { got = append(got, "a:"+string(ev.Type)) })
	cancel := bus.Subscribe(func(ev Event) { got = append(got, "b:"+string(ev.Type)) })

	bus.Publish(Event{Type: TimerStarted})
	cancel()
	cancel()
	bus.Publish(Event{Type: TimerStopped})

	want := []string{"a:timer_started", "b:timer_started", "a:timer_stopped"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected deliveries (-want +got):\n%s", diff)
	}
	if bus.Count() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.Count())
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewBus(zap.New(core))

	delivered := false
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { delivered = true })

	bus.Publish(Event{Type: TimerPaused})

	if !delivered {
		t.Fatal("subscriber after a panicking one must still be called")
	}
	if logs.FilterMessage("Event subscriber panicked").Len() != 1 {
		t.Fatalf("expected panic to be logged, got %v", logs.All())
	}
}

func TestPublishStampsTime(t *testing.T) {
	bus := NewBus(nil)

	var ev Event
	bus.Subscribe(func(e Event) { ev = e })
	bus.Publish(Event{Type: TimerResumed})

	if ev.At.IsZero() {
		t.Fatal("expected publish time to be set")
	}
}

func TestSubscribeDuringPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(func(Event) {
		bus.Subscribe(func(Event) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	})

	bus.Publish(Event{Type: TimerStarted})
	if calls != 0 {
		t.Fatal("subscriber added during publish must not see that event")
	}

	bus.Publish(Event{Type: TimerStarted})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
