package models

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
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

func testTag() Tag {
	return NewTag("Deep work", "#B0DB43", "brain", 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func checkRunningInvariant(t *testing.T, tm *Timer) {
	t.Helper()

	rec := tm.Snapshot()
	if rec.IsRunning != (rec.StartTime != nil) {
		t.Fatalf("running=%v but startTime=%v", rec.IsRunning, rec.StartTime)
	}
}

func TestTimerLifecycleScenario(t *testing.T) {
	clock := newFakeClock()
	t0 := clock.Now()
	tm := NewTimer(testTag(), clock.Now)

	if !tm.Start() {
		t.Fatal("start should change state")
	}
	checkRunningInvariant(t, tm)

	clock.Advance(30 * time.Second)
	tm.Pause()
	checkRunningInvariant(t, tm)

	rec := tm.Snapshot()
	if rec.TotalElapsedSeconds != 30 || rec.IsRunning {
		t.Fatalf("after pause: elapsed=%v running=%v", rec.TotalElapsedSeconds, rec.IsRunning)
	}

	clock.Advance(10 * time.Second)
	tm.Resume()
	checkRunningInvariant(t, tm)

	clock.Advance(30 * time.Second)
	tm.Stop()
	checkRunningInvariant(t, tm)

	rec = tm.Snapshot()
	if rec.TotalElapsedSeconds != 60 {
		t.Fatalf("expected 60s elapsed, got %v", rec.TotalElapsedSeconds)
	}
	if rec.EndTime == nil || !rec.EndTime.Equal(t0.Add(70*time.Second)) {
		t.Fatalf("expected end time T0+70s, got %v", rec.EndTime)
	}
	if rec.IsRunning || rec.StartTime != nil {
		t.Fatal("stopped timer must not be running")
	}
}

func TestTimerStartWhileRunningIsNoop(t *testing.T) {
	clock := newFakeClock()
	tm := NewTimer(testTag(), clock.Now)
	tm.Start()
	first := tm.Snapshot()

	clock.Advance(5 * time.Second)
	if tm.Start() {
		t.Fatal("second start should be a no-op")
	}
	if tm.Resume() {
		t.Fatal("resume while running should be a no-op")
	}

	if diff := cmp.Diff(first, tm.Snapshot()); diff != "" {
		t.Fatalf("state changed (-want +got):\n%s", diff)
	}
}

func TestTimerPauseTwiceIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	tm := NewTimer(testTag(), clock.Now)
	tm.Start()
	clock.Advance(12 * time.Second)

	tm.Pause()
	once := tm.Snapshot()

	clock.Advance(3 * time.Second)
	if tm.Pause() {
		t.Fatal("second pause should report no change")
	}

	if diff := cmp.Diff(once, tm.Snapshot()); diff != "" {
		t.Fatalf("second pause changed state (-want +got):\n%s", diff)
	}
}

func TestClosedTimerNeverTransitions(t *testing.T) {
	clock := newFakeClock()
	tm := NewTimer(testTag(), clock.Now)
	tm.Start()
	clock.Advance(time.Minute)
	tm.Stop()
	closed := tm.Snapshot()

	clock.Advance(time.Minute)

	for name, op := range map[string]func() bool{
		"start":  tm.Start,
		"resume": tm.Resume,
		"pause":  tm.Pause,
		"stop":   tm.Stop,
	} {
		if op() {
			t.Errorf("%s on closed timer reported a change", name)
		}
	}

	if diff := cmp.Diff(closed, tm.Snapshot()); diff != "" {
		t.Fatalf("closed timer mutated (-want +got):\n%s", diff)
	}
}

func TestCurrentElapsedMonotonic(t *testing.T) {
	clock := newFakeClock()
	tm := NewTimer(testTag(), clock.Now)
	tm.Start()

	prev := tm.CurrentElapsed()
	for i := 0; i < 10; i++ {
		clock.Advance(time.Duration(i) * time.Second)
		cur := tm.CurrentElapsed()
		if cur < prev {
			t.Fatalf("elapsed decreased: %v -> %v", prev, cur)
		}
		prev = cur
	}

	if prev != 45 {
		t.Fatalf("expected 45s, got %v", prev)
	}
}

func TestRoundTripWithRealClock(t *testing.T) {
	tm := NewTimer(testTag(), nil)
	tm.Start()
	time.Sleep(20 * time.Millisecond)
	tm.Pause()

	rec := tm.Snapshot()
	if rec.TotalElapsedSeconds < 0.015 || rec.TotalElapsedSeconds > 1 {
		t.Fatalf("unexpected elapsed %v", rec.TotalElapsedSeconds)
	}
	if rec.IsRunning || rec.StartTime != nil {
		t.Fatal("paused timer must not be running")
	}
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	tm := NewTimer(testTag(), clock.Now)
	tm.Start()
	clock.Advance(time.Minute)
	tm.Stop()

	tm.Reset()

	rec := tm.Snapshot()
	if rec.TotalElapsedSeconds != 0 || rec.EndTime != nil || rec.StartTime != nil || rec.IsRunning {
		t.Fatalf("reset left state behind: %+v", rec)
	}
}

func TestNewManualTimer(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now().Add(-2 * time.Hour)
	end := start.Add(90 * time.Minute)

	tm, err := NewManualTimer(testTag(), start, end, clock.Now)
	if err != nil {
		t.Fatal(err)
	}

	rec := tm.Snapshot()
	if rec.TotalElapsedSeconds != 5400 {
		t.Fatalf("expected 5400s, got %v", rec.TotalElapsedSeconds)
	}
	if !rec.CreatedAt.Equal(start) || !rec.Closed() {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, err := NewManualTimer(testTag(), end, start, clock.Now); err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestTimerFromRecordRepairsRunningFlag(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	tm := TimerFromRecord(TimerRecord{Name: "x", StartTime: &start}, nil)
	if tm.Running() {
		t.Fatal("record without is_running must load as paused")
	}
	checkRunningInvariant(t, tm)

	tm = TimerFromRecord(TimerRecord{Name: "y", IsRunning: true}, nil)
	if tm.Running() {
		t.Fatal("record without start_time must load as paused")
	}
}

func TestConcurrentReadsDuringMutation(t *testing.T) {
	tm := NewTimer(testTag(), nil)

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				rec := tm.Snapshot()
				if rec.IsRunning != (rec.StartTime != nil) {
					t.Error("torn snapshot")
					return
				}
				_ = tm.CurrentElapsed()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		tm.Start()
		tm.Pause()
	}
	close(done)
	wg.Wait()
}

func TestSortTags(t *testing.T) {
	now := time.Now()
	tags := []Tag{
		NewTag("tag10", "", "", 2, now),
		NewTag("tag9", "", "", 2, now),
		NewTag("alpha", "", "", 1, now),
	}

	SortTags(tags)

	got := []string{tags[0].Name, tags[1].Name, tags[2].Name}
	want := []string{"alpha", "tag9", "tag10"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}
