// Package hooks runs user commands after session events.
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/events"
)

const defaultTimeout = 30 * time.Second

// Runner runs the on_stop command when a timer stops. The command receives
// the stopped timer through TIMEKEEPER_* environment variables.
type Runner struct {
	onStop  []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner parses the command line. An empty command disables the hook.
func NewRunner(onStop string, logger *zap.Logger) (*Runner, error) {
	args, err := shellquote.Split(onStop)
	if err != nil {
		return nil, fmt.Errorf("unable to parse hooks.on_stop option: %w", err)
	}

	return &Runner{onStop: args, timeout: defaultTimeout, logger: logger}, nil
}

// Enabled reports whether a command is configured.
func (r *Runner) Enabled() bool {
	return len(r.onStop) > 0
}

// Handle is an events.Handler.
func (r *Runner) Handle(ev events.Event) {
	if ev.Type != events.TimerStopped || !r.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.Run(ctx, ev); err != nil {
		r.logger.Warn("on_stop hook failed",
			zap.Strings("command", r.onStop),
			zap.Error(err),
		)
	}
}

// Run executes the command for ev.
func (r *Runner) Run(ctx context.Context, ev events.Event) error {
	if !r.Enabled() {
		return nil
	}

	cmd := exec.CommandContext(ctx, r.onStop[0], r.onStop[1:]...)
	cmd.Env = append(os.Environ(),
		"TIMEKEEPER_EVENT="+string(ev.Type),
		"TIMEKEEPER_TIMER_ID="+ev.Timer.ID.String(),
		"TIMEKEEPER_TIMER_NAME="+ev.Timer.Name,
		"TIMEKEEPER_ELAPSED_SECONDS="+strconv.FormatFloat(ev.FinalElapsed, 'f', 0, 64),
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}

	r.logger.Debug("on_stop hook finished", zap.ByteString("output", out))
	return nil
}
