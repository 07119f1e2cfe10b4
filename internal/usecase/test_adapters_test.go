package usecase

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

type testFileSystem struct{}

func newTestFileSystem() *testFileSystem {
	return &testFileSystem{}
}

func safeFileMode(perm int, fallback fs.FileMode) fs.FileMode {
	if perm < 0 || perm > 0o777 {
		return fallback
	}
	// #nosec G115 -- perm validated to be within safe range.
	return fs.FileMode(perm)
}

func (a *testFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	_ = ctx
	// #nosec G304 -- test paths are controlled by the test harness.
	return os.ReadFile(path)
}

func (a *testFileSystem) CreateDir(ctx context.Context, path string, perm int) error {
	_ = ctx
	return os.MkdirAll(path, safeFileMode(perm, 0o755))
}

func (a *testFileSystem) Remove(ctx context.Context, path string) error {
	_ = ctx
	return os.Remove(path)
}

func (a *testFileSystem) RemoveAll(ctx context.Context, path string) error {
	_ = ctx
	return os.RemoveAll(path)
}

func (a *testFileSystem) Move(ctx context.Context, src, dst string) error {
	_ = ctx
	return os.Rename(src, dst)
}

func (a *testFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	_ = ctx
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapperTest{info}, nil
}

func (a *testFileSystem) Lstat(ctx context.Context, path string) (FileInfo, error) {
	_ = ctx
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapperTest{info}, nil
}

func (a *testFileSystem) Walk(ctx context.Context, root string, walkFn WalkFunc) error {
	_ = ctx
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		var fileInfo FileInfo
		if info != nil {
			fileInfo = &fileInfoWrapperTest{info}
		}
		return walkFn(path, fileInfo, err)
	})
}

func (a *testFileSystem) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	_ = ctx
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, &dirEntryWrapperTest{entry})
	}
	return result, nil
}

func (a *testFileSystem) Glob(ctx context.Context, pattern string) ([]string, error) {
	_ = ctx
	return filepath.Glob(pattern)
}

func (a *testFileSystem) CreateExclusive(ctx context.Context, path string, perm int) error {
	_ = ctx
	// #nosec G304 -- test paths are controlled by the test harness.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, safeFileMode(perm, 0o600))
	if err != nil {
		return err
	}
	return f.Close()
}

func (a *testFileSystem) CopyFile(ctx context.Context, src, dst string) error {
	_ = ctx
	// #nosec G304 -- test paths are controlled by the test harness.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(tmp.Name(), info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (a *testFileSystem) Chtimes(ctx context.Context, path string, atime, mtime time.Time) error {
	_ = ctx
	return os.Chtimes(path, atime, mtime)
}

func (a *testFileSystem) Abs(ctx context.Context, path string) (string, error) {
	_ = ctx
	return filepath.Abs(path)
}

func (a *testFileSystem) Join(elements ...string) string {
	return filepath.Join(elements...)
}

func (a *testFileSystem) Base(path string) string {
	return filepath.Base(path)
}

func (a *testFileSystem) Dir(path string) string {
	return filepath.Dir(path)
}

func (a *testFileSystem) Clean(path string) string { return filepath.Clean(path) }
func (a *testFileSystem) IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
func (a *testFileSystem) IsExist(err error) bool { return errors.Is(err, fs.ErrExist) }
func (a *testFileSystem) IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM)
}
func (a *testFileSystem) IsNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT)
}

type fileInfoWrapperTest struct {
	info fs.FileInfo
}

func (f *fileInfoWrapperTest) Name() string       { return f.info.Name() }
func (f *fileInfoWrapperTest) Size() int64        { return f.info.Size() }
func (f *fileInfoWrapperTest) Mode() int          { return int(f.info.Mode()) }
func (f *fileInfoWrapperTest) ModTime() time.Time { return f.info.ModTime() }
func (f *fileInfoWrapperTest) IsDir() bool        { return f.info.IsDir() }
func (f *fileInfoWrapperTest) IsSymlink() bool    { return f.info.Mode()&os.ModeSymlink != 0 }
func (f *fileInfoWrapperTest) IsRegular() bool    { return f.info.Mode().IsRegular() }
func (f *fileInfoWrapperTest) Sys() interface{}   { return f.info.Sys() }

type dirEntryWrapperTest struct {
	entry fs.DirEntry
}

func (d *dirEntryWrapperTest) Name() string { return d.entry.Name() }
func (d *dirEntryWrapperTest) IsDir() bool  { return d.entry.IsDir() }

// testArchive is a minimal tar.gz implementation for engine tests.
type testArchive struct{}

func (testArchive) Create(ctx context.Context, srcDir, dst string) error {
	// #nosec G304 -- test paths are controlled by the test harness.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	parent := filepath.Dir(srcDir)
	walkErr := filepath.Walk(srcDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		// #nosec G304 -- test paths are controlled by the test harness.
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		_, err = io.Copy(tw, f)
		return err
	})
	if err := errors.Join(walkErr, tw.Close(), gz.Close(), out.Close()); err != nil {
		return err
	}
	return nil
}

func (testArchive) Extract(ctx context.Context, archivePath, destDir, rootName string) error {
	// #nosec G304 -- test paths are controlled by the test harness.
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return ArchiveCorrupt.Wrap(err, "open archive")
	}
	tr := tar.NewReader(gz)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ArchiveCorrupt.Wrap(err, "read archive")
		}
		name := strings.TrimSuffix(hdr.Name, "/")
		if i := strings.IndexByte(name, '/'); i >= 0 {
			name = rootName + name[i:]
		} else {
			name = rootName
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))
		if hdr.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		// #nosec G304 -- test paths are controlled by the test harness.
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fs.FileMode(hdr.Mode).Perm())
		if err != nil {
			return err
		}
		// #nosec G110 -- archives in tests are small and trusted.
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
}

type testDiff struct{}

func (testDiff) Unified(ctx context.Context, from, to []byte, fromLabel, toLabel string) (string, error) {
	_ = ctx
	a := strings.Split(string(from), "\n")
	b := strings.Split(string(to), "\n")
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", fromLabel, toLabel)
	for i := 0; i < len(a) || i < len(b); i++ {
		switch {
		case i >= len(a):
			fmt.Fprintf(&sb, "+%s\n", b[i])
		case i >= len(b):
			fmt.Fprintf(&sb, "-%s\n", a[i])
		case a[i] != b[i]:
			fmt.Fprintf(&sb, "-%s\n+%s\n", a[i], b[i])
		}
	}
	return sb.String(), nil
}

// memSettings keeps key files in memory.
type memSettings struct {
	mu      sync.Mutex
	roots   map[string]string
	caps    map[string]RetentionPolicy
	saveErr error
}

func newMemSettings() *memSettings {
	return &memSettings{roots: map[string]string{}, caps: map[string]RetentionPolicy{}}
}

func (m *memSettings) LoadBackupRoot(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roots[path], nil
}

func (m *memSettings) SaveBackupRoot(ctx context.Context, path, root string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.roots[path] = root
	return nil
}

func (m *memSettings) LoadRetention(ctx context.Context, path string) (RetentionPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps[path], nil
}

func (m *memSettings) SaveRetention(ctx context.Context, path string, policy RetentionPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.caps[path] = policy
	return nil
}

type memStats struct {
	mu      sync.Mutex
	data    map[string]StatsSnapshot
	saves   int
	saveErr error
}

func newMemStats() *memStats {
	return &memStats{data: map[string]StatsSnapshot{}}
}

func (m *memStats) Load(ctx context.Context, path string) (StatsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[path], nil
}

func (m *memStats) Save(ctx context.Context, path string, stats StatsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data[path] = stats
	return nil
}

type memLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLock() *memLock {
	return &memLock{locks: map[string]*sync.Mutex{}}
}

func (m *memLock) Lock(ctx context.Context, path string) (LockHandle, error) {
	m.mu.Lock()
	l, ok := m.locks[path]
	if !ok {
		l = &sync.Mutex{}
		m.locks[path] = l
	}
	m.mu.Unlock()
	l.Lock()
	return memHandle{l}, nil
}

type memHandle struct{ l *sync.Mutex }

func (h memHandle) Unlock() error {
	h.l.Unlock()
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Send(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Title)
	}
	return out
}

type memConfig struct {
	mu   sync.Mutex
	data map[string]ConfigFile
}

func newMemConfig() *memConfig {
	return &memConfig{data: map[string]ConfigFile{}}
}

func (m *memConfig) Load(ctx context.Context, path string) (ConfigFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.data[path]; ok {
		return cfg, nil
	}
	return DefaultConfigFile(), nil
}

func (m *memConfig) Save(ctx context.Context, path string, cfg ConfigFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = cfg
	// #nosec G306 -- test file.
	return os.WriteFile(path, []byte("# test\n"), 0o644)
}

type testEnv struct {
	t        *testing.T
	home     string
	work     string
	deps     *Dependencies
	settings *memSettings
	stats    *memStats
	notes    *recordingNotifier
	cfg      *Config
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	work := filepath.Join(home, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}
	env := &testEnv{
		t:        t,
		home:     home,
		work:     work,
		settings: newMemSettings(),
		stats:    newMemStats(),
		notes:    &recordingNotifier{},
		clock:    &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local)},
	}
	env.deps = &Dependencies{
		FileSystem:   newTestFileSystem(),
		Archive:      testArchive{},
		Diff:         testDiff{},
		Config:       newMemConfig(),
		Settings:     env.settings,
		Stats:        env.stats,
		Lock:         newMemLock(),
		Notification: env.notes,
	}
	env.cfg = &Config{
		HomeDir:        home,
		ConfigDir:      filepath.Join(home, ".config", ConfigDirName),
		AsyncThreshold: 10_000_000,
		Notifications:  NotificationsConfig{Enabled: true},
	}
	return env
}

func (env *testEnv) engine() *Engine {
	env.t.Helper()
	e, err := NewEngine(context.Background(), env.cfg, env.deps, testLogger(), WithClock(env.clock.Now))
	if err != nil {
		env.t.Fatalf("NewEngine: %v", err)
	}
	env.t.Cleanup(e.Close)
	return e
}

func (env *testEnv) writeFile(rel, content string) string {
	env.t.Helper()
	p := filepath.Join(env.work, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		env.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		env.t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func setMTime(t *testing.T, path string, mt time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
