package usecase

import (
	"context"
	"sync"
)

// statsLedger keeps lifetime counters. Updates are serialized in-process by
// mu and across processes by the lock file next to the record.
type statsLedger struct {
	mu       sync.Mutex
	store    StatsPort
	lock     LockPort
	path     string
	lockPath string
	current  StatsSnapshot
	bc       *backupContext
}

func newStatsLedger(deps *Dependencies, configDir string, bc *backupContext) *statsLedger {
	fs := deps.FileSystem
	return &statsLedger{
		store:    deps.Stats,
		lock:     deps.Lock,
		path:     fs.Join(configDir, statsFileName),
		lockPath: fs.Join(configDir, statsLockName),
		bc:       bc,
	}
}

// load reads the persisted record. A missing or unreadable record counts as zero.
func (l *statsLedger) load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats, err := l.store.Load(ctx, l.path)
	if err != nil {
		l.bc.warnf("load stats: %v", err)
		return
	}
	l.current = stats
}

func (l *statsLedger) snapshot() StatsSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// record adds one backup of size bytes and persists the result. Persist
// failures are logged; the in-memory counters still advance.
func (l *statsLedger) record(ctx context.Context, size int64) StatsSnapshot {
	if size < 0 {
		size = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	handle, err := l.lock.Lock(ctx, l.lockPath)
	if err != nil {
		l.bc.warnf("lock stats: %v", err)
	} else {
		defer func() {
			if err := handle.Unlock(); err != nil {
				l.bc.warnf("unlock stats: %v", err)
			}
		}()
		// another process may have advanced the record since load
		if disk, err := l.store.Load(ctx, l.path); err == nil &&
			disk.TotalBackups >= l.current.TotalBackups && disk.TotalBytes >= l.current.TotalBytes {
			l.current = disk
		}
	}

	l.current.TotalBackups++
	l.current.TotalBytes += size
	if err := l.store.Save(context.WithoutCancel(ctx), l.path, l.current); err != nil {
		l.bc.warnf("save stats: %v", err)
	}
	return l.current
}
