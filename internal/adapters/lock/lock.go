package lock

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/arumata/nautback/internal/usecase"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRetryDelay = 50 * time.Millisecond
)

// Adapter implements usecase.LockPort with advisory file locks. The kernel
// drops a lock when its holder exits, so no stale lock cleanup is needed.
type Adapter struct {
	logger     *slog.Logger
	timeout    time.Duration
	retryDelay time.Duration
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithTimeout bounds how long Lock waits for a busy lock.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// New creates a new lock adapter.
func New(logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		panic("lock adapter requires logger")
	}
	a := &Adapter{logger: logger, timeout: defaultTimeout, retryDelay: defaultRetryDelay}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lock acquires an exclusive lock on path, creating the file if needed.
// A lock still busy after the adapter timeout yields usecase.LockBusy.
func (a *Adapter) Lock(ctx context.Context, path string) (usecase.LockHandle, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, usecase.IOError.Wrap(err, "create lock dir for %s", path)
	}

	fileLock := flock.New(path)
	lockCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, a.retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, usecase.Interrupted.Wrap(ctx.Err(), "waiting for lock %s", path)
		}
		if lockCtx.Err() != nil {
			return nil, usecase.LockBusy.New("timed out after %s waiting for lock %s", a.timeout, path)
		}
		return nil, usecase.IOError.Wrap(err, "acquire lock %s", path)
	}
	if !locked {
		return nil, usecase.LockBusy.New("timed out after %s waiting for lock %s", a.timeout, path)
	}
	a.logger.Debug("lock acquired", "path", path)
	return &handle{lock: fileLock, logger: a.logger}, nil
}

type handle struct {
	lock   *flock.Flock
	logger *slog.Logger
}

// Unlock releases the lock. The lock file itself is left in place so that
// concurrent waiters keep locking the same inode.
func (h *handle) Unlock() error {
	if err := h.lock.Unlock(); err != nil {
		return usecase.IOError.Wrap(err, "release lock %s", h.lock.Path())
	}
	h.logger.Debug("lock released", "path", h.lock.Path())
	return nil
}
