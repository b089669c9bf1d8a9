// Package session owns the active timer and serializes every change to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/events"
	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/repository"
)

var (
	// ErrNoActiveStorage is returned when the controller has no storage.
	ErrNoActiveStorage = errors.New("no active storage")
	// ErrTimerActive is returned when an operation conflicts with the
	// active timer.
	ErrTimerActive = errors.New("a timer is already active")
	// ErrPersist wraps save failures. The in-memory change is kept.
	ErrPersist = errors.New("failed to persist timer")
	// ErrTagInUse is returned when deleting a tag some timer is filed under.
	ErrTagInUse = errors.New("tag is in use")
)

// StartPolicy decides what StartTimer does while another timer is active.
type StartPolicy string

const (
	StopPrevious StartPolicy = "stop_previous"
	Reject       StartPolicy = "reject"
)

// Valid reports whether p is a known policy.
func (p StartPolicy) Valid() bool {
	return p == StopPrevious || p == Reject
}

// Options configures a Controller.
type Options struct {
	Policy StartPolicy
	Clock  models.Clock
}

// Controller is the single writer of the active timer.
type Controller struct {
	mu      sync.Mutex
	storage repository.Storage
	bus     *events.Bus
	logger  *zap.Logger
	clock   models.Clock
	policy  StartPolicy
	active  *models.Timer
	seq     uint64
}

// NewController creates a controller. storage may be nil, in which case
// every mutating call fails with ErrNoActiveStorage.
func NewController(storage repository.Storage, bus *events.Bus, logger *zap.Logger, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if !opts.Policy.Valid() {
		opts.Policy = StopPrevious
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}

	return &Controller{
		storage: storage,
		bus:     bus,
		logger:  logger,
		clock:   opts.Clock,
		policy:  opts.Policy,
	}
}

// Bus returns the bus events are published on.
func (c *Controller) Bus() *events.Bus {
	return c.bus
}

// Active returns a snapshot of the active timer, or nil.
func (c *Controller) Active() *models.TimerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil
	}
	rec := c.active.Snapshot()
	return &rec
}

// StartTimer creates and starts a timer for tag.
func (c *Controller) StartTimer(ctx context.Context, tag models.Tag) (*models.TimerRecord, error) {
	c.mu.Lock()
	rec, evs, err := c.startLocked(ctx, tag)
	c.sequence(evs)
	c.mu.Unlock()

	c.publish(evs)
	return rec, err
}

func (c *Controller) startLocked(ctx context.Context, tag models.Tag) (*models.TimerRecord, []events.Event, error) {
	if err := c.requireStorage("start"); err != nil {
		return nil, nil, err
	}

	var (
		evs  []events.Event
		errs []error
	)

	if c.active != nil {
		if c.policy == Reject {
			c.logger.Warn("Start rejected, timer already active",
				zap.String("timer_id", c.active.ID().String()),
			)
			return nil, nil, ErrTimerActive
		}

		_, stopEvs, err := c.stopLocked(ctx)
		evs = append(evs, stopEvs...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	tm := models.NewTimer(tag, c.clock)
	c.storage.InsertTimer(tm)
	if err := c.saveLocked(ctx, "insert", tm, &evs); err != nil {
		errs = append(errs, err)
	}

	tm.Start()
	if err := c.saveLocked(ctx, "start", tm, &evs); err != nil {
		errs = append(errs, err)
	}

	c.active = tm
	rec := tm.Snapshot()

	c.logger.Info("Timer started",
		zap.String("timer_id", rec.ID.String()),
		zap.String("tag", tag.Name),
	)

	evs = append(evs, events.Event{Type: events.TimerStarted, Timer: rec, Running: true})
	return &rec, evs, errors.Join(errs...)
}

// PauseTimer pauses the active timer. It is a logged no-op when there is
// nothing running.
func (c *Controller) PauseTimer(ctx context.Context) (*models.TimerRecord, error) {
	c.mu.Lock()
	rec, evs, err := c.pauseLocked(ctx)
	c.sequence(evs)
	c.mu.Unlock()

	c.publish(evs)
	return rec, err
}

func (c *Controller) pauseLocked(ctx context.Context) (*models.TimerRecord, []events.Event, error) {
	if err := c.requireStorage("pause"); err != nil {
		return nil, nil, err
	}
	if c.active == nil {
		c.logger.Warn("No active timer to pause")
		return nil, nil, nil
	}
	if !c.active.Pause() {
		c.logger.Warn("Timer is not running", zap.String("timer_id", c.active.ID().String()))
		return nil, nil, nil
	}

	var evs []events.Event
	err := c.saveLocked(ctx, "pause", c.active, &evs)

	rec := c.active.Snapshot()
	c.logger.Info("Timer paused",
		zap.String("timer_id", rec.ID.String()),
		zap.Float64("elapsed_seconds", rec.TotalElapsedSeconds),
	)

	evs = append(evs, events.Event{Type: events.TimerPaused, Timer: rec})
	return &rec, evs, err
}

// ResumeTimer resumes the paused active timer.
func (c *Controller) ResumeTimer(ctx context.Context) (*models.TimerRecord, error) {
	c.mu.Lock()
	rec, evs, err := c.resumeLocked(ctx)
	c.sequence(evs)
	c.mu.Unlock()

	c.publish(evs)
	return rec, err
}

func (c *Controller) resumeLocked(ctx context.Context) (*models.TimerRecord, []events.Event, error) {
	if err := c.requireStorage("resume"); err != nil {
		return nil, nil, err
	}
	if c.active == nil {
		c.logger.Warn("No active timer to resume")
		return nil, nil, nil
	}
	if !c.active.Resume() {
		c.logger.Warn("Timer is already running", zap.String("timer_id", c.active.ID().String()))
		return nil, nil, nil
	}

	var evs []events.Event
	err := c.saveLocked(ctx, "resume", c.active, &evs)

	rec := c.active.Snapshot()
	c.logger.Info("Timer resumed", zap.String("timer_id", rec.ID.String()))

	evs = append(evs, events.Event{Type: events.TimerResumed, Timer: rec, Running: true})
	return &rec, evs, err
}

// StopTimer closes the active timer and clears it.
func (c *Controller) StopTimer(ctx context.Context) (*models.TimerRecord, error) {
	var (
		rec *models.TimerRecord
		evs []events.Event
	)

	c.mu.Lock()
	err := c.requireStorage("stop")
	if err == nil {
		rec, evs, err = c.stopLocked(ctx)
	}
	c.sequence(evs)
	c.mu.Unlock()

	c.publish(evs)
	return rec, err
}

func (c *Controller) stopLocked(ctx context.Context) (*models.TimerRecord, []events.Event, error) {
	if c.active == nil {
		c.logger.Warn("No active timer to stop")
		return nil, nil, nil
	}

	tm := c.active
	tm.Stop()

	var evs []events.Event
	err := c.saveLocked(ctx, "stop", tm, &evs)

	rec := tm.Snapshot()
	c.active = nil

	c.logger.Info("Timer stopped",
		zap.String("timer_id", rec.ID.String()),
		zap.Float64("elapsed_seconds", rec.TotalElapsedSeconds),
	)

	evs = append(evs, events.Event{
		Type:         events.TimerStopped,
		Timer:        rec,
		FinalElapsed: rec.TotalElapsedSeconds,
	})
	return &rec, evs, err
}

// ResumeIfNeeded adopts the open timer left in storage by a previous run.
func (c *Controller) ResumeIfNeeded(ctx context.Context) (*models.TimerRecord, error) {
	c.mu.Lock()
	rec, evs, err := c.resyncLocked(ctx)
	c.sequence(evs)
	c.mu.Unlock()

	c.publish(evs)
	return rec, err
}

func (c *Controller) resyncLocked(ctx context.Context) (*models.TimerRecord, []events.Event, error) {
	if err := c.requireStorage("resync"); err != nil {
		return nil, nil, err
	}
	if c.active != nil {
		rec := c.active.Snapshot()
		return &rec, nil, nil
	}

	stored, err := c.storage.FetchActiveTimer(ctx)
	if err != nil {
		c.logger.Error("Failed to fetch active timer", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to fetch active timer: %w", err)
	}
	if stored == nil {
		c.logger.Debug("No timer to resume")
		return nil, nil, nil
	}

	tm := models.TimerFromRecord(*stored, c.clock)
	c.storage.InsertTimer(tm)
	c.active = tm

	rec := tm.Snapshot()
	c.logger.Info("Resynced active timer",
		zap.String("timer_id", rec.ID.String()),
		zap.Bool("running", rec.IsRunning),
	)

	return &rec, []events.Event{{Type: events.TimerResynced, Timer: rec, Running: rec.IsRunning}}, nil
}

// AddManualEntry records a closed timer covering [start, end).
func (c *Controller) AddManualEntry(ctx context.Context, tag models.Tag, start, end time.Time) (*models.TimerRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStorage("log"); err != nil {
		return nil, err
	}

	tm, err := models.NewManualTimer(tag, start, end, c.clock)
	if err != nil {
		return nil, err
	}

	c.storage.InsertTimer(tm)
	if err := c.storage.Save(ctx); err != nil {
		c.storage.DeleteTimer(tm.ID())
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	rec := tm.Snapshot()
	c.logger.Info("Manual entry added",
		zap.String("timer_id", rec.ID.String()),
		zap.String("tag", tag.Name),
		zap.Float64("elapsed_seconds", rec.TotalElapsedSeconds),
	)
	return &rec, nil
}

// DeleteTimer removes a saved timer. The active timer cannot be deleted.
func (c *Controller) DeleteTimer(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStorage("delete"); err != nil {
		return err
	}
	if c.active != nil && c.active.ID() == id {
		c.logger.Warn("Refusing to delete the active timer", zap.String("timer_id", id.String()))
		return ErrTimerActive
	}

	c.storage.DeleteTimer(id)
	if err := c.storage.Save(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	c.logger.Info("Timer deleted", zap.String("timer_id", id.String()))
	return nil
}

// SaveTag creates or updates a tag.
func (c *Controller) SaveTag(ctx context.Context, tag models.Tag) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStorage("save tag"); err != nil {
		return err
	}

	c.storage.InsertTag(tag)
	if err := c.storage.Save(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// DeleteTag removes a tag. It refuses with ErrTagInUse while any timer,
// including the active one, is filed under it as its main tag.
func (c *Controller) DeleteTag(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStorage("delete tag"); err != nil {
		return err
	}

	inUse := false
	if c.active != nil {
		if main, ok := c.active.Snapshot().MainTag(); ok && main.ID == id {
			inUse = true
		}
	}
	if !inUse {
		recs, err := c.storage.FetchTimers(ctx, repository.TimerFilter{TagID: &id, Limit: 1})
		if err != nil {
			return err
		}
		inUse = len(recs) > 0
	}
	if inUse {
		c.logger.Warn("Refusing to delete tag in use", zap.String("tag_id", id.String()))
		return ErrTagInUse
	}

	c.storage.DeleteTag(id)
	if err := c.storage.Save(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (c *Controller) requireStorage(op string) error {
	if c.storage == nil {
		c.logger.Error("No active storage", zap.String("op", op))
		return ErrNoActiveStorage
	}
	return nil
}

// saveLocked flushes storage. On failure the change stays staged for the
// next save and a persistence_failed event is queued.
func (c *Controller) saveLocked(ctx context.Context, op string, tm *models.Timer, evs *[]events.Event) error {
	err := c.storage.Save(ctx)
	if err == nil {
		return nil
	}

	rec := tm.Snapshot()
	c.logger.Error("Failed to persist timer",
		zap.String("op", op),
		zap.String("timer_id", rec.ID.String()),
		zap.Error(err),
	)

	*evs = append(*evs, events.Event{
		Type:    events.PersistenceFailed,
		Timer:   rec,
		Running: rec.IsRunning,
		Err:     err.Error(),
	})

	return fmt.Errorf("%w: %s: %w", ErrPersist, op, err)
}

// sequence stamps evs in commit order. Callers hold c.mu.
func (c *Controller) sequence(evs []events.Event) {
	for i := range evs {
		c.seq++
		evs[i].Seq = c.seq
		if evs[i].At.IsZero() {
			evs[i].At = c.clock()
		}
	}
}

func (c *Controller) publish(evs []events.Event) {
	for _, ev := range evs {
		c.bus.Publish(ev)
	}
}
