package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"Mansoor88-6/timekeeper/internal/events"
	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyStorage fails Save while fail is set.
type flakyStorage struct {
	repository.Storage
	mu   sync.Mutex
	fail bool
}

func (s *flakyStorage) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func (s *flakyStorage) Save(ctx context.Context) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()

	if fail {
		return errors.New("disk full")
	}
	return s.Storage.Save(ctx)
}

type harness struct {
	ctrl    *Controller
	store   *flakyStorage
	clock   *fakeClock
	logs    *observer.ObservedLogs
	mu      sync.Mutex
	events  []events.Event
	workTag models.Tag
}

func newHarness(t *testing.T, policy StartPolicy) *harness {
	t.Helper()

	store, err := repository.Open(repository.DriverBolt, filepath.Join(t.TempDir(), "tk.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return newHarnessWithStorage(t, &flakyStorage{Storage: store}, policy)
}

func newHarnessWithStorage(t *testing.T, store *flakyStorage, policy StartPolicy) *harness {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	h := &harness{
		store:   store,
		clock:   &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)},
		logs:    logs,
		workTag: models.NewTag("Work", "#B0DB43", "briefcase", 0, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	bus := events.NewBus(logger)
	bus.Subscribe(func(ev events.Event) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		h.mu.Unlock()
	})

	var storage repository.Storage
	if store != nil {
		storage = store
	}

	h.ctrl = NewController(storage, bus, logger, Options{Policy: policy, Clock: h.clock.Now})
	return h
}

func (h *harness) types() []events.Type {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]events.Type, len(h.events))
	for i, ev := range h.events {
		out[i] = ev.Type
	}
	return out
}

func (h *harness) last() events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[len(h.events)-1]
}

func (h *harness) warnings(t *testing.T, msg string) int {
	t.Helper()
	return h.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage(msg).Len()
}

func TestControllerLifecycle(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()

	rec, err := h.ctrl.StartTimer(ctx, h.workTag)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Work" || !rec.IsRunning {
		t.Fatalf("unexpected started timer %+v", rec)
	}

	h.clock.Advance(30 * time.Second)
	if _, err := h.ctrl.PauseTimer(ctx); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(10 * time.Second)
	if _, err := h.ctrl.ResumeTimer(ctx); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(30 * time.Second)
	stopped, err := h.ctrl.StopTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stopped.TotalElapsedSeconds != 60 || stopped.EndTime == nil {
		t.Fatalf("unexpected stopped timer %+v", stopped)
	}
	if h.ctrl.Active() != nil {
		t.Fatal("active timer must be cleared after stop")
	}

	want := []events.Type{events.TimerStarted, events.TimerPaused, events.TimerResumed, events.TimerStopped}
	if diff := cmp.Diff(want, h.types()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	if ev := h.last(); ev.FinalElapsed != 60 {
		t.Fatalf("expected final elapsed 60, got %v", ev.FinalElapsed)
	}

	saved, err := h.store.FetchTimers(ctx, repository.TimerFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].TotalElapsedSeconds != 60 || saved[0].EndTime == nil {
		t.Fatalf("unexpected saved timers %+v", saved)
	}
}

func TestControllerInvalidTransitionsAreLoggedNoops(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()

	for name, op := range map[string]func(context.Context) (*models.TimerRecord, error){
		"pause":  h.ctrl.PauseTimer,
		"resume": h.ctrl.ResumeTimer,
		"stop":   h.ctrl.StopTimer,
	} {
		rec, err := op(ctx)
		if err != nil || rec != nil {
			t.Fatalf("%s without active timer: rec=%v err=%v", name, rec, err)
		}
	}

	if h.warnings(t, "No active timer to pause") != 1 ||
		h.warnings(t, "No active timer to resume") != 1 ||
		h.warnings(t, "No active timer to stop") != 1 {
		t.Fatalf("expected warnings, got %v", h.logs.All())
	}

	if _, err := h.ctrl.StartTimer(ctx, h.workTag); err != nil {
		t.Fatal(err)
	}
	if rec, err := h.ctrl.ResumeTimer(ctx); err != nil || rec != nil {
		t.Fatalf("resume while running: rec=%v err=%v", rec, err)
	}
	if h.warnings(t, "Timer is already running") != 1 {
		t.Fatal("expected already-running warning")
	}

	h.ctrl.PauseTimer(ctx)
	before := h.ctrl.Active()
	h.clock.Advance(time.Minute)
	if rec, err := h.ctrl.PauseTimer(ctx); err != nil || rec != nil {
		t.Fatalf("second pause: rec=%v err=%v", rec, err)
	}
	if diff := cmp.Diff(before, h.ctrl.Active()); diff != "" {
		t.Fatalf("second pause changed state (-want +got):\n%s", diff)
	}
	if h.warnings(t, "Timer is not running") != 1 {
		t.Fatal("expected not-running warning")
	}

	want := []events.Type{events.TimerStarted, events.TimerPaused}
	if diff := cmp.Diff(want, h.types()); diff != "" {
		t.Fatalf("no-ops must not publish (-want +got):\n%s", diff)
	}
}

func TestStartPolicyStopPrevious(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()
	gym := models.NewTag("Gym", "", "", 1, h.clock.Now())

	first, err := h.ctrl.StartTimer(ctx, h.workTag)
	if err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(5 * time.Minute)
	second, err := h.ctrl.StartTimer(ctx, gym)
	if err != nil {
		t.Fatal(err)
	}

	want := []events.Type{events.TimerStarted, events.TimerStopped, events.TimerStarted}
	if diff := cmp.Diff(want, h.types()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}

	active := h.ctrl.Active()
	if active == nil || active.ID != second.ID {
		t.Fatal("second timer must be active")
	}

	saved, err := h.store.FetchTimers(ctx, repository.TimerFilter{})
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range saved {
		if rec.ID == first.ID && (rec.EndTime == nil || rec.TotalElapsedSeconds != 300) {
			t.Fatalf("previous timer not closed: %+v", rec)
		}
	}
}

func TestStartPolicyReject(t *testing.T) {
	h := newHarness(t, Reject)
	ctx := context.Background()

	first, err := h.ctrl.StartTimer(ctx, h.workTag)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.ctrl.StartTimer(ctx, h.workTag); !errors.Is(err, ErrTimerActive) {
		t.Fatalf("expected ErrTimerActive, got %v", err)
	}

	if active := h.ctrl.Active(); active == nil || active.ID != first.ID || !active.IsRunning {
		t.Fatal("active timer must be untouched")
	}
	if diff := cmp.Diff([]events.Type{events.TimerStarted}, h.types()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestNoStorage(t *testing.T) {
	h := newHarnessWithStorage(t, nil, StopPrevious)
	ctx := context.Background()

	if _, err := h.ctrl.StartTimer(ctx, h.workTag); !errors.Is(err, ErrNoActiveStorage) {
		t.Fatalf("start: expected ErrNoActiveStorage, got %v", err)
	}
	if _, err := h.ctrl.PauseTimer(ctx); !errors.Is(err, ErrNoActiveStorage) {
		t.Fatalf("pause: expected ErrNoActiveStorage, got %v", err)
	}
	if _, err := h.ctrl.StopTimer(ctx); !errors.Is(err, ErrNoActiveStorage) {
		t.Fatalf("stop: expected ErrNoActiveStorage, got %v", err)
	}
	if _, err := h.ctrl.ResumeIfNeeded(ctx); !errors.Is(err, ErrNoActiveStorage) {
		t.Fatalf("resync: expected ErrNoActiveStorage, got %v", err)
	}
	if len(h.types()) != 0 {
		t.Fatal("no events expected without storage")
	}
}

func TestPersistenceFailureKeepsMemoryAndReconciles(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()

	if _, err := h.ctrl.StartTimer(ctx, h.workTag); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(20 * time.Second)
	h.store.setFail(true)

	rec, err := h.ctrl.PauseTimer(ctx)
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if rec == nil || rec.IsRunning || rec.TotalElapsedSeconds != 20 {
		t.Fatalf("memory must keep the pause: %+v", rec)
	}

	want := []events.Type{events.TimerStarted, events.PersistenceFailed, events.TimerPaused}
	if diff := cmp.Diff(want, h.types()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}

	stored, err := h.store.FetchActiveTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil || !stored.IsRunning {
		t.Fatal("storage should still hold the running state")
	}

	h.store.setFail(false)
	if _, err := h.ctrl.StopTimer(ctx); err != nil {
		t.Fatal(err)
	}

	saved, err := h.store.FetchTimers(ctx, repository.TimerFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].TotalElapsedSeconds != 20 || saved[0].EndTime == nil {
		t.Fatalf("next save must reconcile storage: %+v", saved)
	}
}

func TestResumeIfNeededAdoptsStoredTimer(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()

	started, err := h.ctrl.StartTimer(ctx, h.workTag)
	if err != nil {
		t.Fatal(err)
	}

	// a second process on the same storage
	cold := newHarnessWithStorage(t, h.store, StopPrevious)
	cold.clock = h.clock
	cold.ctrl.clock = h.clock.Now

	if cold.ctrl.Active() != nil {
		t.Fatal("cold controller must start empty")
	}

	rec, err := cold.ctrl.ResumeIfNeeded(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.ID != started.ID || !rec.IsRunning {
		t.Fatalf("unexpected resynced timer %+v", rec)
	}
	if ev := cold.last(); ev.Type != events.TimerResynced || !ev.Running {
		t.Fatalf("unexpected event %+v", ev)
	}

	h.clock.Advance(90 * time.Second)
	stopped, err := cold.ctrl.StopTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stopped.TotalElapsedSeconds != 90 {
		t.Fatalf("expected 90s, got %v", stopped.TotalElapsedSeconds)
	}

	again, err := cold.ctrl.ResumeIfNeeded(ctx)
	if err != nil || again != nil {
		t.Fatalf("nothing left to resume: rec=%v err=%v", again, err)
	}
}

func TestManualEntriesAndDeletion(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()
	now := h.clock.Now()

	if _, err := h.ctrl.AddManualEntry(ctx, h.workTag, now, now.Add(-time.Hour)); !errors.Is(err, models.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	manual, err := h.ctrl.AddManualEntry(ctx, h.workTag, now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if manual.TotalElapsedSeconds != 3600 {
		t.Fatalf("unexpected manual entry %+v", manual)
	}

	active, err := h.ctrl.StartTimer(ctx, h.workTag)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.DeleteTimer(ctx, active.ID); !errors.Is(err, ErrTimerActive) {
		t.Fatalf("expected ErrTimerActive, got %v", err)
	}

	if err := h.ctrl.DeleteTimer(ctx, manual.ID); err != nil {
		t.Fatal(err)
	}

	saved, err := h.store.FetchTimers(ctx, repository.TimerFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].ID != active.ID {
		t.Fatalf("unexpected timers after delete %+v", saved)
	}
}

func TestTagCatalog(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()

	if err := h.ctrl.SaveTag(ctx, h.workTag); err != nil {
		t.Fatal(err)
	}
	tags, err := h.store.FetchTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Name != "Work" {
		t.Fatalf("unexpected tags %+v", tags)
	}

	if err := h.ctrl.DeleteTag(ctx, h.workTag.ID); err != nil {
		t.Fatal(err)
	}
	if tags, _ := h.store.FetchTags(ctx); len(tags) != 0 {
		t.Fatalf("expected no tags, got %+v", tags)
	}
}

func TestSubscribersMayReadController(t *testing.T) {
	h := newHarness(t, StopPrevious)

	var seen *models.TimerRecord
	h.ctrl.Bus().Subscribe(func(ev events.Event) {
		if ev.Type == events.TimerStarted {
			seen = h.ctrl.Active()
		}
	})

	if _, err := h.ctrl.StartTimer(context.Background(), h.workTag); err != nil {
		t.Fatal(err)
	}
	if seen == nil || !seen.IsRunning {
		t.Fatal("subscriber should observe the new active timer")
	}
}

func TestDeleteTagRefusesTagInUse(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()

	if err := h.ctrl.SaveTag(ctx, h.workTag); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ctrl.StartTimer(ctx, h.workTag); err != nil {
		t.Fatal(err)
	}

	if err := h.ctrl.DeleteTag(ctx, h.workTag.ID); !errors.Is(err, ErrTagInUse) {
		t.Fatalf("expected ErrTagInUse for the active timer's tag, got %v", err)
	}

	h.clock.Advance(time.Minute)
	if _, err := h.ctrl.StopTimer(ctx); err != nil {
		t.Fatal(err)
	}

	// still filed under the tag once stopped
	if err := h.ctrl.DeleteTag(ctx, h.workTag.ID); !errors.Is(err, ErrTagInUse) {
		t.Fatalf("expected ErrTagInUse for a stored timer's tag, got %v", err)
	}
	if got := h.warnings(t, "Refusing to delete tag in use"); got != 2 {
		t.Fatalf("expected 2 refusal warnings, got %d", got)
	}
	if tags, _ := h.store.FetchTags(ctx); len(tags) != 1 {
		t.Fatalf("tag should survive, got %+v", tags)
	}
}

func TestConcurrentOperationsSerialize(t *testing.T) {
	h := newHarness(t, StopPrevious)
	ctx := context.Background()

	if _, err := h.ctrl.StartTimer(ctx, h.workTag); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			h.clock.Advance(time.Second)
			h.ctrl.PauseTimer(ctx)
		}()
		go func() {
			defer wg.Done()
			h.ctrl.ResumeTimer(ctx)
		}()
		go func() {
			defer wg.Done()
			if rec := h.ctrl.Active(); rec != nil && rec.IsRunning != (rec.StartTime != nil) {
				t.Errorf("torn snapshot: running=%v startTime=%v", rec.IsRunning, rec.StartTime)
			}
		}()
	}
	wg.Wait()

	stopped, err := h.ctrl.StopTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stopped.EndTime == nil || stopped.IsRunning || stopped.StartTime != nil {
		t.Fatalf("timer should end closed, got %+v", stopped)
	}
	if h.ctrl.Active() != nil {
		t.Fatal("no timer should remain active")
	}

	active, err := h.store.FetchActiveTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Fatalf("storage still holds an open timer %+v", active)
	}
}
