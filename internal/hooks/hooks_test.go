package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"Mansoor88-6/timekeeper/internal/events"
	"Mansoor88-6/timekeeper/internal/models"
)

func TestRunnerPassesTimerToCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")

	r, err := NewRunner(`sh -c 'echo "$TIMEKEEPER_TIMER_NAME $TIMEKEEPER_ELAPSED_SECONDS" > "$0"' `+out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	r.Handle(events.Event{
		Type:         events.TimerStopped,
		Timer:        models.TimerRecord{ID: uuid.New(), Name: "Deep work"},
		FinalElapsed: 1500.4,
	})

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(b)); got != "Deep work 1500" {
		t.Fatalf("unexpected hook output %q", got)
	}
}

func TestRunnerIgnoresOtherEvents(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")

	r, err := NewRunner("touch "+out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	r.Handle(events.Event{Type: events.TimerStarted})

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("hook must only run on stop")
	}
}

func TestNewRunner(t *testing.T) {
	r, err := NewRunner("", zaptest.NewLogger(t))
	if err != nil || r.Enabled() {
		t.Fatalf("empty command: enabled=%v err=%v", r.Enabled(), err)
	}

	if _, err := NewRunner(`notify "unterminated`, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected parse error")
	}
}
