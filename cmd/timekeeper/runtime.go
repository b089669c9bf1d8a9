package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/config"
	"Mansoor88-6/timekeeper/internal/events"
	"Mansoor88-6/timekeeper/internal/health"
	"Mansoor88-6/timekeeper/internal/hooks"
	"Mansoor88-6/timekeeper/internal/livestatus"
	"Mansoor88-6/timekeeper/internal/lock"
	"Mansoor88-6/timekeeper/internal/logger"
	"Mansoor88-6/timekeeper/internal/report"
	"Mansoor88-6/timekeeper/internal/repository"
	"Mansoor88-6/timekeeper/internal/session"
)

const lockWait = 2 * time.Second

// runtime holds every service of one process.
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	lock    *lock.Lock
	storage repository.Storage
	remote  *health.HTTPProvider
	cache   *health.Cache
	reports *report.Service
	status  *livestatus.Writer
	ctrl    *session.Controller
	loc     *time.Location
}

// openRuntime loads the configuration, takes the process lock and wires the
// services. The active timer left by a previous process is adopted before
// returning.
func openRuntime(c *cli.Context) (rt *runtime, err error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt = &runtime{cfg: cfg, log: log, loc: time.Local}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	waitCtx, cancel := context.WithTimeout(c.Context, lockWait)
	rt.lock, err = lock.Wait(waitCtx, cfg.LockPath())
	cancel()
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, fmt.Errorf("%w; use the tray or the HTTP API of the running instance", err)
		}
		return nil, fmt.Errorf("failed to take process lock: %w", err)
	}

	rt.storage, err = repository.Open(cfg.Storage.Driver, cfg.Storage.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	provider := rt.healthProvider()
	rt.reports = report.NewService(rt.storage, provider, rt.loc, log.Logger)

	bus := events.NewBus(log.Logger)

	rt.status = livestatus.NewWriter(cfg.Status.File, rt.reports, log.Logger)
	bus.Subscribe(rt.status.Handle)

	if cfg.Notifications.Enabled {
		bus.Subscribe(livestatus.NewNotifications(livestatus.Beeep{}, log.Logger).Handle)
	}

	runner, err := hooks.NewRunner(cfg.Hooks.OnStop, log.Logger)
	if err != nil {
		return nil, err
	}
	if runner.Enabled() {
		bus.Subscribe(runner.Handle)
	}

	rt.ctrl = session.NewController(rt.storage, bus, log.Logger, session.Options{
		Policy: session.StartPolicy(cfg.Session.StartPolicy),
	})

	if _, err := rt.ctrl.ResumeIfNeeded(c.Context); err != nil {
		return nil, err
	}

	log.Debug("Runtime ready",
		zap.String("env", cfg.Env),
		zap.String("driver", cfg.Storage.Driver),
		zap.String("health_source", cfg.Health.Source),
	)
	return rt, nil
}

func (rt *runtime) healthProvider() health.Provider {
	var next health.Provider

	switch rt.cfg.Health.Source {
	case "local":
		sqlite, ok := rt.storage.(*repository.SQLite)
		if !ok {
			return health.Nop{}
		}
		next = sqlite
	case "http":
		rt.remote = health.NewHTTPProvider(rt.cfg.Health.BaseURL, rt.cfg.Health.Token, rt.cfg.Health.Timeout(), rt.log.Logger)
		next = rt.remote
	default:
		return health.Nop{}
	}

	rt.cache = health.NewCache(next, health.CacheOptions{
		Days:         rt.cfg.Health.CacheDays,
		TTL:          rt.cfg.Health.CacheTTL(),
		FetchTimeout: rt.cfg.Health.Timeout(),
		Location:     rt.loc,
	}, rt.log.Logger)
	return rt.cache
}

func (rt *runtime) insightsDefaults() report.InsightsQuery {
	return report.InsightsQuery{
		ShowUntracked:   !rt.cfg.Insights.HideUntracked,
		IncludeSleep:    !rt.cfg.Insights.ExcludeSleep,
		IncludeWorkouts: !rt.cfg.Insights.ExcludeWorkouts,
	}
}

// Close releases everything in reverse order of acquisition.
func (rt *runtime) Close() {
	if rt.cache != nil {
		rt.cache.Stop()
	}
	if rt.storage != nil {
		if err := rt.storage.Close(); err != nil {
			rt.log.Error("Failed to close storage", zap.Error(err))
		}
	}
	if err := rt.lock.Release(); err != nil {
		rt.log.Warn("Failed to release process lock", zap.Error(err))
	}
	_ = rt.log.Sync()
}

// withRuntime adapts an action that needs the services.
func withRuntime(fn func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := openRuntime(c)
		if err != nil {
			return err
		}
		defer rt.Close()

		return fn(c, rt)
	}
}
