package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

type backupContext struct {
	logger  *slog.Logger
	verbose bool
}

func newBackupContext(logger *slog.Logger, verbose bool) *backupContext {
	if logger == nil {
		panic("logger is required")
	}
	return &backupContext{logger: logger, verbose: verbose}
}

func (bc *backupContext) logf(format string, a ...any) {
	bc.logger.Info(fmt.Sprintf(format, a...))
}

func (bc *backupContext) vlogf(format string, a ...any) {
	if !bc.verbose {
		return
	}
	bc.logf(format, a...)
}

func (bc *backupContext) warnf(format string, a ...any) {
	bc.logger.Warn(fmt.Sprintf(format, a...))
}

const workerQueueSize = 16

// Engine owns the runtime configuration and runs every backup operation.
// Background work is executed by a single worker goroutine, one job at a
// time, in submission order.
//
// A queued job runs under the context passed to the call that submitted it,
// so canceling that context (the CLI cancels on SIGINT/SIGTERM) interrupts
// the job and leaves no partial backup behind. Hosts that want background
// work to outlive a request pass context.WithoutCancel(ctx).
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	deps   *Dependencies
	bc     *backupContext
	now    func() time.Time
	ledger *statsLedger
	worker *worker
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source used for backup names.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine loads the key files, creates the backup root and starts the
// background worker. Call Close to drain it.
func NewEngine(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	opts ...EngineOption,
) (*Engine, error) {
	bc := newBackupContext(logger, cfg != nil && cfg.Verbose)
	if cfg == nil {
		return nil, InvalidArgument.New("config is required")
	}
	if err := validateEngineDependencies(deps); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ConfigDir) == "" {
		return nil, InvalidArgument.New("config directory is empty")
	}

	e := &Engine{
		cfg:  *cfg,
		deps: deps,
		bc:   bc,
		now:  time.Now,
	}
	e.cfg.SearchRoots = append([]string(nil), cfg.SearchRoots...)
	for _, opt := range opts {
		opt(e)
	}

	if err := deps.FileSystem.CreateDir(ctx, e.cfg.ConfigDir, 0o755); err != nil {
		bc.warnf("create config dir '%s': %v", e.cfg.ConfigDir, err)
	}
	e.loadSettings(ctx)
	e.ledger = newStatsLedger(deps, e.cfg.ConfigDir, bc)
	e.ledger.load(ctx)
	e.worker = newWorker(workerQueueSize)

	bc.vlogf("[engine] backup root=%s retention=%s async threshold=%s",
		e.cfg.BackupRoot, e.cfg.Retention, humanize.Bytes(uint64(max(e.cfg.AsyncThreshold, 0))))
	return e, nil
}

func validateEngineDependencies(deps *Dependencies) error {
	if deps == nil {
		return InvalidArgument.New("dependencies are required")
	}
	missing := []struct {
		name   string
		absent bool
	}{
		{"filesystem", deps.FileSystem == nil},
		{"archive", deps.Archive == nil},
		{"diff", deps.Diff == nil},
		{"settings", deps.Settings == nil},
		{"stats", deps.Stats == nil},
		{"lock", deps.Lock == nil},
		{"notification", deps.Notification == nil},
	}
	for _, m := range missing {
		if m.absent {
			return InvalidArgument.New("%s adapter not available", m.name)
		}
	}
	return nil
}

// Close waits for queued background work and stops the worker.
func (e *Engine) Close() {
	e.worker.close()
}

// Stats returns the lifetime counters.
func (e *Engine) Stats() StatsSnapshot {
	return e.ledger.snapshot()
}

// SingleSelection returns the only path or InvalidSelection.
func SingleSelection(paths []string) (string, error) {
	if len(paths) != 1 {
		return "", InvalidSelection.New("select exactly one item, got %d", len(paths))
	}
	return paths[0], nil
}

func (e *Engine) notify(ctx context.Context, n Notification) {
	if !e.cfg.Notifications.Enabled {
		return
	}
	if err := e.deps.Notification.Send(context.WithoutCancel(ctx), n); err != nil {
		e.bc.vlogf("notification: %v", err)
	}
}

// ItemResult is the outcome for one selected source.
type ItemResult struct {
	Source      string
	Destination string
	Bytes       int64
	Removed     []string
	Err         error
}

// Kind returns the error kind of a failed item.
func (r ItemResult) Kind() ErrorKind {
	return KindOf(r.Err)
}

// BatchResult holds one ItemResult per source in selection order.
type BatchResult struct {
	Items []ItemResult
}

// Succeeded returns the items without error.
func (b BatchResult) Succeeded() []ItemResult {
	var out []ItemResult
	for _, it := range b.Items {
		if it.Err == nil {
			out = append(out, it)
		}
	}
	return out
}

// Failed returns the items with an error.
func (b BatchResult) Failed() []ItemResult {
	var out []ItemResult
	for _, it := range b.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Err returns the first item error.
func (b BatchResult) Err() error {
	for _, it := range b.Items {
		if it.Err != nil {
			return it.Err
		}
	}
	return nil
}

// Report summarizes the batch as a success flag plus a message.
func (b BatchResult) Report() (bool, string) {
	ok := b.Succeeded()
	failed := b.Failed()
	var lines []string
	switch {
	case len(ok) == 1:
		lines = append(lines, "Backed up to:\n"+dirOf(ok[0].Destination))
	case len(ok) > 1:
		lines = append(lines, fmt.Sprintf("%d file(s) backed up", len(ok)))
	}
	for _, f := range failed {
		lines = append(lines, failureMessage(f))
	}
	return len(failed) == 0 && len(ok) > 0, strings.Join(lines, "\n")
}

func failureMessage(it ItemResult) string {
	return fmt.Sprintf("Failed to backup %s\n%s", baseOf(it.Source), UserMessage(it.Err))
}

func dirOf(p string) string {
	if i := strings.LastIndexByte(p, '/'); i > 0 {
		return p[:i]
	} else if i == 0 {
		return "/"
	}
	return "."
}

func baseOf(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// destinationFunc picks the destination path for a resolved source.
type destinationFunc func(src sourceInfo, now time.Time) string

type batchItem struct {
	input string
	src   sourceInfo
	err   error
}

// QuickBackup writes each source next to itself under its encoded name.
func (e *Engine) QuickBackup(ctx context.Context, sources []string) *Task[BatchResult] {
	fs := e.deps.FileSystem
	return e.runBatch(ctx, sources, func(src sourceInfo, now time.Time) string {
		return fs.Join(fs.Dir(src.Path), Encode(src.Name, src.Kind, now))
	})
}

// BackupTo writes each source into destDir under its encoded name. An empty
// destDir means the backup root, which is created when missing.
func (e *Engine) BackupTo(ctx context.Context, sources []string, destDir string) *Task[BatchResult] {
	fs := e.deps.FileSystem
	dir := strings.TrimSpace(destDir)
	if dir == "" {
		dir = e.Settings().BackupRoot
		if err := fs.CreateDir(ctx, dir, 0o755); err != nil {
			return e.failBatch(ctx, sources, classifyFSError(fs, err, "create backup root", dir))
		}
	} else {
		abs, err := fs.Abs(ctx, expandHomeDir(dir, e.cfg.HomeDir))
		if err != nil {
			return e.failBatch(ctx, sources, classifyFSError(fs, err, "resolve destination", dir))
		}
		dir = abs
	}
	return e.runBatch(ctx, sources, func(src sourceInfo, now time.Time) string {
		return fs.Join(dir, Encode(src.Name, src.Kind, now))
	})
}

// BackupAs writes source to exactly destPath.
func (e *Engine) BackupAs(ctx context.Context, source, destPath string) *Task[BatchResult] {
	fs := e.deps.FileSystem
	if strings.TrimSpace(destPath) == "" {
		return e.failBatch(ctx, []string{source}, InvalidArgument.New("destination path is empty"))
	}
	dest, err := fs.Abs(ctx, expandHomeDir(destPath, e.cfg.HomeDir))
	if err != nil {
		return e.failBatch(ctx, []string{source}, classifyFSError(fs, err, "resolve destination", destPath))
	}
	return e.runBatch(ctx, []string{source}, func(sourceInfo, time.Time) string {
		return dest
	})
}

func (e *Engine) failBatch(ctx context.Context, sources []string, err error) *Task[BatchResult] {
	res := BatchResult{Items: make([]ItemResult, 0, len(sources))}
	for _, s := range sources {
		res.Items = append(res.Items, ItemResult{Source: s, Err: err})
	}
	e.notifyBatch(ctx, res)
	return completedTask(res, err)
}

// runBatch resolves every source up front. If any of them is a directory or
// larger than the async threshold the whole batch goes to the worker.
func (e *Engine) runBatch(ctx context.Context, sources []string, destFor destinationFunc) *Task[BatchResult] {
	if len(sources) == 0 {
		err := InvalidSelection.New("nothing selected")
		e.notify(ctx, Notification{Title: "Backup Failed", Message: UserMessage(err), Severity: SeverityError})
		return completedTask(BatchResult{}, err)
	}

	items := make([]batchItem, len(sources))
	large := false
	for i, s := range sources {
		items[i].input = s
		items[i].src, items[i].err = resolveSource(ctx, e.deps.FileSystem, s)
		if items[i].err == nil && e.isLarge(items[i].src) {
			large = true
		}
	}

	run := func() (BatchResult, error) {
		res := e.executeBatch(ctx, items, destFor)
		return res, res.Err()
	}
	if !large {
		res, err := run()
		return completedTask(res, err)
	}

	msg := fmt.Sprintf("Backing up %d items", len(items))
	if len(items) == 1 {
		msg = "Backing up " + baseOf(items[0].input)
	}
	e.notify(ctx, Notification{Title: "Backup In Progress...", Message: msg})
	return submitTask(e.worker, run)
}

func (e *Engine) isLarge(src sourceInfo) bool {
	return src.Kind == SourceDirectory || src.Size > e.cfg.AsyncThreshold
}

func (e *Engine) executeBatch(ctx context.Context, items []batchItem, destFor destinationFunc) BatchResult {
	res := BatchResult{Items: make([]ItemResult, 0, len(items))}
	for _, it := range items {
		res.Items = append(res.Items, e.backupOne(ctx, it, destFor))
	}
	e.notifyBatch(ctx, res)
	return res
}

func (e *Engine) backupOne(ctx context.Context, it batchItem, destFor destinationFunc) ItemResult {
	fs := e.deps.FileSystem
	out := ItemResult{Source: it.input}
	if it.err != nil {
		out.Err = it.err
		e.bc.warnf("backup %s: %v", it.input, it.err)
		return out
	}
	if ctx.Err() != nil {
		out.Err = interruptedError(ctx)
		return out
	}
	// the source may have changed since the batch was planned
	src, err := resolveSource(ctx, fs, it.src.Path)
	if err != nil {
		out.Err = err
		e.bc.warnf("backup %s: %v", it.input, err)
		return out
	}
	out.Source = src.Path

	dest := destFor(src, e.now())
	out.Destination = dest
	if src.Kind == SourceDirectory && isWithin(dest, src.Path) {
		out.Err = InvalidSelection.New("destination is inside the source directory: %s", dest).
			WithProperty(pathProperty, dest)
		e.bc.warnf("backup %s: %v", src.Path, out.Err)
		return out
	}

	size, err := writeSnapshot(ctx, e.deps, src, dest, e.bc)
	if err != nil {
		out.Err = err
		e.bc.warnf("backup %s: %v", src.Path, err)
		return out
	}
	out.Bytes = size
	e.bc.logf("[backup] %s -> %s (%s)", src.Path, dest, humanize.Bytes(uint64(size)))

	out.Removed = enforceRetention(ctx, e.deps, dest, e.Settings().Retention, e.bc)
	stats := e.ledger.record(ctx, size)
	e.bc.vlogf("[stats] %d backup(s), %s", stats.TotalBackups, humanize.Bytes(uint64(stats.TotalBytes)))
	return out
}

func (e *Engine) notifyBatch(ctx context.Context, res BatchResult) {
	for _, f := range res.Failed() {
		e.notify(ctx, Notification{Title: "Backup Failed", Message: failureMessage(f), Severity: SeverityError})
	}
	ok := res.Succeeded()
	if len(ok) == 0 {
		return
	}
	msg := fmt.Sprintf("%d file(s) backed up", len(ok))
	if len(ok) == 1 {
		msg = "Backed up to:\n" + dirOf(ok[0].Destination)
	}
	e.notify(ctx, Notification{Title: "Backup Complete ✓", Message: msg})
}

func isWithin(path, dir string) bool {
	dir = strings.TrimRight(dir, "/")
	return path == dir || strings.HasPrefix(path, dir+"/")
}
