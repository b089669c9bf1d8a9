package livestatus

import (
	"fmt"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/events"
)

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, message string) error
}

// Beeep sends notifications through the OS notification service.
type Beeep struct {
	Icon string
}

func (b Beeep) Notify(title, message string) error {
	return beeep.Notify(title, message, b.Icon)
}

// Notifications turns session events into desktop notifications.
type Notifications struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewNotifications(n Notifier, logger *zap.Logger) *Notifications {
	return &Notifications{notifier: n, logger: logger}
}

// Handle is an events.Handler.
func (n *Notifications) Handle(ev events.Event) {
	title, msg, ok := message(ev)
	if !ok {
		return
	}

	if err := n.notifier.Notify(title, msg); err != nil {
		n.logger.Warn("Unable to display notification", zap.Error(err))
	}
}

func message(ev events.Event) (string, string, bool) {
	name := ev.Timer.Name

	switch ev.Type {
	case events.TimerStarted:
		return "Timer started", name, true
	case events.TimerStopped:
		return "Timer stopped", fmt.Sprintf("%s: %s", name, FormatClock(ev.FinalElapsed)), true
	case events.PersistenceFailed:
		return "Could not save timer", fmt.Sprintf("%s: %s", name, ev.Err), true
	default:
		return "", "", false
	}
}
