package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/timeline"
)

const (
	kindSleep   = "sleep"
	kindWorkout = "workout"
)

// CacheOptions configures a Cache.
type CacheOptions struct {
	// Days is the size of the rolling window, ending today.
	Days int
	// TTL bounds how long a cached day is served before it is refetched.
	TTL             time.Duration
	CleanupInterval time.Duration
	// FetchTimeout bounds a shared fetch, which outlives the caller that
	// started it.
	FetchTimeout time.Duration
	Location     *time.Location
	Now             func() time.Time
}

type dayEntry struct {
	day       time.Time
	fetchedAt time.Time
	items     interface{}
}

// Cache keeps recently fetched days in memory. Ranges reaching outside the
// rolling window are passed through uncached.
type Cache struct {
	next   Provider
	opts   CacheOptions
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*dayEntry
	group   singleflight.Group

	stopChan  chan struct{}
	stopOnce  sync.Once
	cleanupWg sync.WaitGroup
}

// NewCache wraps next and starts the cleanup loop.
func NewCache(next Provider, opts CacheOptions, logger *zap.Logger) *Cache {
	if opts.Days <= 0 {
		opts.Days = 30
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Cache{
		next:     next,
		opts:     opts,
		logger:   logger,
		entries:  make(map[string]*dayEntry),
		stopChan: make(chan struct{}),
	}

	c.cleanupWg.Add(1)
	go c.cleanupLoop()

	return c
}

func (c *Cache) FetchSleepSamples(ctx context.Context, r DateRange) ([]models.SleepSample, error) {
	return fetchCached(ctx, c, kindSleep, r, c.next.FetchSleepSamples,
		func(s models.SleepSample) time.Time { return s.Start })
}

func (c *Cache) FetchWorkoutRecords(ctx context.Context, r DateRange) ([]models.WorkoutRecord, error) {
	return fetchCached(ctx, c, kindWorkout, r, c.next.FetchWorkoutRecords,
		func(w models.WorkoutRecord) time.Time { return w.Start })
}

func fetchCached[T any](
	ctx context.Context,
	c *Cache,
	kind string,
	r DateRange,
	fetch func(context.Context, DateRange) ([]T, error),
	start func(T) time.Time,
) ([]T, error) {
	if !r.To.After(r.From) {
		return nil, nil
	}

	if r.From.Before(c.windowStart()) {
		return fetch(ctx, r)
	}

	days := c.daysIn(r)

	if missing := c.missing(kind, days); len(missing) > 0 {
		span := DateRange{From: missing[0], To: missing[len(missing)-1].AddDate(0, 0, 1)}
		key := fmt.Sprintf("%s/%d/%d", kind, span.From.Unix(), span.To.Unix())

		ch := c.group.DoChan(key, func() (interface{}, error) {
			// detached from ctx: later callers share this flight
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
			defer cancel()
			return fetch(fctx, span)
		})

		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		v, shared := res.Val, res.Shared

		c.logger.Debug("Health cache miss",
			zap.String("kind", kind),
			zap.Time("from", span.From),
			zap.Time("to", span.To),
			zap.Bool("shared", shared),
		)

		items := v.([]T)
		byDay := make(map[string][]T)
		for _, it := range items {
			k := timeline.DayKey(start(it), c.opts.Location)
			byDay[k] = append(byDay[k], it)
		}

		fetchedAt := c.opts.Now()
		c.mu.Lock()
		for d := span.From; d.Before(span.To); d = d.AddDate(0, 0, 1) {
			dk := timeline.DayKey(d, c.opts.Location)
			c.entries[kind+"/"+dk] = &dayEntry{day: d, fetchedAt: fetchedAt, items: byDay[dk]}
		}
		c.pruneLocked()
		c.mu.Unlock()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []T
	for _, d := range days {
		e, ok := c.entries[kind+"/"+timeline.DayKey(d, c.opts.Location)]
		if !ok {
			continue
		}
		items, _ := e.items.([]T)
		for _, it := range items {
			if r.Contains(start(it)) {
				out = append(out, it)
			}
		}
	}

	return out, nil
}

// missing returns the days without a fresh entry, oldest first.
func (c *Cache) missing(kind string, days []time.Time) []time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.opts.Now()

	var out []time.Time
	for _, d := range days {
		e, ok := c.entries[kind+"/"+timeline.DayKey(d, c.opts.Location)]
		if !ok || now.Sub(e.fetchedAt) > c.opts.TTL {
			out = append(out, d)
		}
	}
	return out
}

func (c *Cache) daysIn(r DateRange) []time.Time {
	var days []time.Time
	for d := timeline.StartOfDay(r.From, c.opts.Location); d.Before(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (c *Cache) windowStart() time.Time {
	today := timeline.StartOfDay(c.opts.Now(), c.opts.Location)
	return today.AddDate(0, 0, -(c.opts.Days - 1))
}

// Len returns the number of cached day entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops every cached day.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*dayEntry)
}

func (c *Cache) cleanupLoop() {
	defer c.cleanupWg.Done()

	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.pruneLocked()
			c.mu.Unlock()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Cache) pruneLocked() {
	start := c.windowStart()
	expired := 0

	for key, e := range c.entries {
		if e.day.Before(start) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.Debug("Pruned health cache",
			zap.Int("count", expired),
		)
	}
}

// Stop stops the cleanup goroutine.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.cleanupWg.Wait()
		c.logger.Debug("Health cache stopped")
	})
}
