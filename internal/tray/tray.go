// Package tray shows the active timer in the system tray.
package tray

import (
	"context"
	"time"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/events"
	"Mansoor88-6/timekeeper/internal/livestatus"
	"Mansoor88-6/timekeeper/internal/models"
)

const (
	refreshInterval = time.Second
	opTimeout       = 5 * time.Second
)

// Sessions is the part of the session controller the tray menu drives.
type Sessions interface {
	Bus() *events.Bus
	PauseTimer(ctx context.Context) (*models.TimerRecord, error)
	ResumeTimer(ctx context.Context) (*models.TimerRecord, error)
	StopTimer(ctx context.Context) (*models.TimerRecord, error)
}

// StatusSource returns the latest live status.
type StatusSource interface {
	Last() livestatus.Status
}

type Tray struct {
	sessions Sessions
	status   StatusSource
	logger   *zap.Logger

	pause  *systray.MenuItem
	resume *systray.MenuItem
	stop   *systray.MenuItem
	quit   *systray.MenuItem

	changed chan struct{}
	done    chan struct{}
}

func New(sessions Sessions, status StatusSource, logger *zap.Logger) *Tray {
	return &Tray{
		sessions: sessions,
		status:   status,
		logger:   logger,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Run blocks until Quit is called or the Quit menu item is clicked. It must
// be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("timekeeper")
	systray.SetTooltip("timekeeper")

	t.pause = systray.AddMenuItem("Pause", "Pause the active timer")
	t.resume = systray.AddMenuItem("Resume", "Resume the active timer")
	t.stop = systray.AddMenuItem("Stop", "Stop the active timer")
	systray.AddSeparator()
	t.quit = systray.AddMenuItem("Quit", "Quit timekeeper")

	unsubscribe := t.sessions.Bus().Subscribe(func(events.Event) {
		select {
		case t.changed <- struct{}{}:
		default:
		}
	})

	go func() {
		defer unsubscribe()
		t.loop()
	}()

	t.refresh()
	t.logger.Info("Tray started")
}

func (t *Tray) onExit() {
	close(t.done)
	t.logger.Info("Tray stopped")
}

func (t *Tray) loop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.refresh()
		case <-t.changed:
			t.refresh()
		case <-t.pause.ClickedCh:
			t.run("pause", t.sessions.PauseTimer)
		case <-t.resume.ClickedCh:
			t.run("resume", t.sessions.ResumeTimer)
		case <-t.stop.ClickedCh:
			t.run("stop", t.sessions.StopTimer)
		case <-t.quit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (t *Tray) run(op string, fn func(context.Context) (*models.TimerRecord, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := fn(ctx); err != nil {
		t.logger.Warn("Tray action failed", zap.String("op", op), zap.Error(err))
	}
}

func (t *Tray) refresh() {
	s := t.status.Last()
	systray.SetTitle(s.Title(time.Now()))

	toggle(t.pause, s.Active() && s.Running)
	toggle(t.resume, s.Active() && !s.Running)
	toggle(t.stop, s.Active())
}

func toggle(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}
