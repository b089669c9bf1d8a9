package report

import (
	"context"
	"sync"
)

// Latest runs computations so that starting a new one cancels the one in
// flight. Only the newest call reports ok.
type Latest[T any] struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Do runs fn. ok is false when a newer Do superseded this one.
func (l *Latest[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (v T, ok bool, err error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	mine := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	v, err = fn(cctx)

	l.mu.Lock()
	ok = mine == l.seq
	if ok {
		l.cancel = nil
	}
	l.mu.Unlock()

	if !ok {
		var zero T
		return zero, false, context.Canceled
	}
	return v, true, err
}
