// Package lock serializes timekeeper processes that share a database.
package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("timekeeper is already running in another process")

const retryInterval = 50 * time.Millisecond

// Lock is an exclusive lock on a file.
type Lock struct {
	f *os.File
}

// Acquire takes the lock or fails immediately with ErrLocked.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	if err := tryLock(f); err != nil {
		f.Close()
		return nil, err
	}

	return &Lock{f: f}, nil
}

// Wait retries Acquire until it succeeds or ctx is done.
func Wait(ctx context.Context, path string) (*Lock, error) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		l, err := Acquire(path)
		if !errors.Is(err, ErrLocked) {
			return l, err
		}

		select {
		case <-ctx.Done():
			return nil, ErrLocked
		case <-ticker.C:
		}
	}
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}

	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
