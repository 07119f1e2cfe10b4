package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitBatch(t *testing.T, task *Task[BatchResult]) (BatchResult, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

func TestQuickBackup_File(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", strings.Repeat("x", 100))
	mt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	setMTime(t, src, mt)
	require.NoError(t, os.Chmod(src, 0o640))
	e := env.engine()

	task := e.QuickBackup(context.Background(), []string{src})
	require.False(t, task.Async())
	res, err := waitBatch(t, task)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	want := filepath.Join(env.work, "notes_backup_2025-01-01_10-00-00.txt")
	require.Equal(t, want, res.Items[0].Destination)
	require.EqualValues(t, 100, res.Items[0].Bytes)

	info, err := os.Stat(want)
	require.NoError(t, err)
	require.EqualValues(t, 100, info.Size())
	require.True(t, info.ModTime().Equal(mt), "mtime %v", info.ModTime())
	require.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	require.Equal(t, StatsSnapshot{TotalBackups: 1, TotalBytes: 100}, e.Stats())
	require.Equal(t, []string{"Backup Complete ✓"}, env.notes.titles())

	ok, msg := res.Report()
	require.True(t, ok)
	require.Equal(t, "Backed up to:\n"+env.work, msg)
}

func TestQuickBackup_DirectoryRunsInBackground(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile("project/a.txt", "alpha")
	env.writeFile("project/b.txt", "beta")
	env.writeFile("project/sub/c.txt", "gamma")
	e := env.engine()

	task := e.QuickBackup(context.Background(), []string{filepath.Join(env.work, "project")})
	require.True(t, task.Async())
	res, err := waitBatch(t, task)
	require.NoError(t, err)

	archive := filepath.Join(env.work, "project_backup_2025-01-01_10-00-00.tar.gz")
	require.Equal(t, archive, res.Items[0].Destination)
	info, err := os.Stat(archive)
	require.NoError(t, err)
	require.Equal(t, info.Size(), res.Items[0].Bytes)
	require.Equal(t, info.Size(), e.Stats().TotalBytes)
	require.Equal(t, []string{"Backup In Progress...", "Backup Complete ✓"}, env.notes.titles())

	// extraction reproduces the directory under its own name
	out := t.TempDir()
	require.NoError(t, testArchive{}.Extract(context.Background(), archive, out, "project"))
	for rel, want := range map[string]string{"a.txt": "alpha", "b.txt": "beta", "sub/c.txt": "gamma"} {
		data, err := os.ReadFile(filepath.Join(out, "project", rel))
		require.NoError(t, err)
		require.Equal(t, want, string(data))
	}
}

func TestQuickBackup_LargeFileRunsInBackground(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.AsyncThreshold = 10
	src := env.writeFile("big.bin", strings.Repeat("z", 11))
	small := env.writeFile("small.txt", "s")
	e := env.engine()

	task := e.QuickBackup(context.Background(), []string{small, src})
	require.True(t, task.Async())
	res, err := waitBatch(t, task)
	require.NoError(t, err)
	require.Len(t, res.Succeeded(), 2)
	require.Equal(t, small, res.Items[0].Source)
	require.Equal(t, src, res.Items[1].Source)
	require.EqualValues(t, 2, e.Stats().TotalBackups)
}

func TestQuickBackup_BatchIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	a := env.writeFile("a.txt", "a")
	c := env.writeFile("c.txt", "c")
	missing := filepath.Join(env.work, "b.txt")
	e := env.engine()

	res, err := waitBatch(t, e.QuickBackup(context.Background(), []string{a, missing, c}))
	require.Error(t, err)
	require.Len(t, res.Items, 3)
	require.NoError(t, res.Items[0].Err)
	require.Equal(t, KindNotFound, res.Items[1].Kind())
	require.NoError(t, res.Items[2].Err)

	ok, msg := res.Report()
	require.False(t, ok)
	require.Contains(t, msg, "2 file(s) backed up")
	require.Contains(t, msg, "Failed to backup b.txt")
	require.Equal(t, []string{"Backup Failed", "Backup Complete ✓"}, env.notes.titles())
	require.EqualValues(t, 2, e.Stats().TotalBackups)
}

func TestQuickBackup_EmptySelection(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()
	_, err := waitBatch(t, e.QuickBackup(context.Background(), nil))
	require.Equal(t, KindInvalidSelection, KindOf(err))
}

func TestQuickBackup_DestinationExists(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", "new")
	existing := env.writeFile("notes_backup_2025-01-01_10-00-00.txt", "old")
	e := env.engine()

	res, err := waitBatch(t, e.QuickBackup(context.Background(), []string{src}))
	require.Equal(t, KindDestinationExists, KindOf(err))
	require.Equal(t, KindDestinationExists, res.Items[0].Kind())

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	require.Equal(t, "old", string(data), "existing backup must not be touched")
	require.Zero(t, e.Stats().TotalBackups)
}

func TestBackupTo_DefaultsToBackupRoot(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", "hello")
	e := env.engine()

	root := filepath.Join(env.home, "Backups")
	require.Equal(t, root, e.Settings().BackupRoot)
	require.NoError(t, os.RemoveAll(root))

	res, err := waitBatch(t, e.BackupTo(context.Background(), []string{src}, ""))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "notes_backup_2025-01-01_10-00-00.txt"), res.Items[0].Destination)
}

func TestBackupTo_ExplicitDirectory(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", "hello")
	dest := t.TempDir()
	e := env.engine()

	res, err := waitBatch(t, e.BackupTo(context.Background(), []string{src}, dest))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dest, "notes_backup_2025-01-01_10-00-00.txt"), res.Items[0].Destination)
}

func TestBackupTo_RejectsArchiveInsideSource(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile("project/a.txt", "a")
	project := filepath.Join(env.work, "project")
	e := env.engine()

	res, err := waitBatch(t, e.BackupTo(context.Background(), []string{project}, project))
	require.Equal(t, KindInvalidSelection, KindOf(err))
	entries, err := os.ReadDir(project)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, res.Failed(), 1)
}

func TestBackupAs_CustomName(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", "hello")
	dest := filepath.Join(t.TempDir(), "my-copy.txt")
	e := env.engine()

	res, err := waitBatch(t, e.BackupAs(context.Background(), src, dest))
	require.NoError(t, err)
	require.Equal(t, dest, res.Items[0].Destination)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestBackupAs_EmptyDestination(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", "hello")
	e := env.engine()
	_, err := waitBatch(t, e.BackupAs(context.Background(), src, "  "))
	require.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestRetention_KeepsNewest(t *testing.T) {
	env := newTestEnv(t)
	env.settings.caps[filepath.Join(env.cfg.ConfigDir, retentionFileName)] = RetentionPolicy{MaxGenerations: 2}
	src := env.writeFile("notes.txt", "v")
	other := env.writeFile("notes.md", "other family")
	e := env.engine()

	base := time.Now().Add(-time.Hour)
	var made []string
	var removed [][]string
	for i := 0; i < 3; i++ {
		res, err := waitBatch(t, e.QuickBackup(context.Background(), []string{src}))
		require.NoError(t, err)
		made = append(made, res.Items[0].Destination)
		removed = append(removed, res.Items[0].Removed)
		setMTime(t, res.Items[0].Destination, base.Add(time.Duration(i)*time.Minute))
		env.clock.Advance(time.Second)
	}
	require.Empty(t, removed[0])
	require.Empty(t, removed[1])
	require.Equal(t, []string{made[0]}, removed[2])

	// the md family must survive retention of the txt family
	otherBackup := filepath.Join(env.work, "notes_backup_2020-01-01_00-00-00.md")
	require.NoError(t, os.WriteFile(otherBackup, []byte("x"), 0o644))
	setMTime(t, otherBackup, base.Add(-time.Hour))

	res, err := waitBatch(t, e.QuickBackup(context.Background(), []string{src}))
	require.NoError(t, err)
	require.Equal(t, []string{made[1]}, res.Items[0].Removed)

	matches, err := filepath.Glob(filepath.Join(env.work, "notes_backup_*.txt"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{made[2], res.Items[0].Destination}, matches)
	require.FileExists(t, otherBackup)
	require.FileExists(t, other)
	require.EqualValues(t, 4, e.Stats().TotalBackups, "retention does not reduce stats")
}

func TestRetention_TiesBrokenByName(t *testing.T) {
	env := newTestEnv(t)
	fs := newTestFileSystem()
	same := time.Now().Add(-time.Minute)
	var paths []string
	for _, stamp := range []string{"2025-01-01_10-00-00", "2025-01-01_10-00-01", "2025-01-01_10-00-02"} {
		p := env.writeFile("a_backup_"+stamp+".txt", "x")
		setMTime(t, p, same)
		paths = append(paths, p)
	}
	removed := enforceRetention(context.Background(), env.deps, paths[2], RetentionPolicy{MaxGenerations: 1},
		newBackupContext(testLogger(), false))
	require.Equal(t, []string{paths[1], paths[0]}, removed)

	recs, err := listFamily(context.Background(), fs, env.work, "a", ".txt")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, paths[2], recs[0].Path)
}

type failingRemoveFS struct {
	*testFileSystem
	fail string
}

func (f *failingRemoveFS) Remove(ctx context.Context, path string) error {
	if path == f.fail {
		return os.ErrPermission
	}
	return f.testFileSystem.Remove(ctx, path)
}

func TestRetention_DeletionFailureIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	old := time.Now().Add(-time.Hour)
	var paths []string
	for i, stamp := range []string{"2025-01-01_10-00-00", "2025-01-01_10-00-01", "2025-01-01_10-00-02"} {
		p := env.writeFile("a_backup_"+stamp+".txt", "x")
		setMTime(t, p, old.Add(time.Duration(i)*time.Minute))
		paths = append(paths, p)
	}
	env.deps.FileSystem = &failingRemoveFS{testFileSystem: newTestFileSystem(), fail: paths[1]}
	removed := enforceRetention(context.Background(), env.deps, paths[2], RetentionPolicy{MaxGenerations: 1},
		newBackupContext(testLogger(), false))
	require.Equal(t, []string{paths[0]}, removed)
	require.FileExists(t, paths[1])
}

func TestRetention_Unlimited(t *testing.T) {
	env := newTestEnv(t)
	p := env.writeFile("a_backup_2025-01-01_10-00-00.txt", "x")
	removed := enforceRetention(context.Background(), env.deps, p, RetentionPolicy{}, newBackupContext(testLogger(), false))
	require.Empty(t, removed)
}

type failingArchive struct {
	testArchive
}

func (failingArchive) Create(ctx context.Context, srcDir, dst string) error {
	// write partial data, then fail like a mid-archive I/O error
	if err := os.WriteFile(dst, []byte("partial"), 0o600); err != nil {
		return err
	}
	return os.ErrClosed
}

func TestSnapshot_FailedArchiveLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile("project/a.txt", "a")
	env.deps.Archive = failingArchive{}
	e := env.engine()

	res, err := waitBatch(t, e.QuickBackup(context.Background(), []string{filepath.Join(env.work, "project")}))
	require.Equal(t, KindIOError, KindOf(err))
	_, statErr := os.Stat(res.Items[0].Destination)
	require.True(t, os.IsNotExist(statErr), "partial archive left behind")

	recs, err := e.History(context.Background(), filepath.Join(env.work, "project"))
	require.NoError(t, err)
	require.Empty(t, recs)
	require.Zero(t, e.Stats().TotalBackups)
	require.Equal(t, []string{"Backup In Progress...", "Backup Failed"}, env.notes.titles())
}

type blockingArchive struct {
	testArchive
	started chan struct{}
}

func (a blockingArchive) Create(ctx context.Context, srcDir, dst string) error {
	close(a.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestQuickBackup_BackgroundJobFollowsCallerContext(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile("project/a.txt", "a")
	arch := blockingArchive{started: make(chan struct{})}
	env.deps.Archive = arch
	e := env.engine()

	ctx, cancel := context.WithCancel(context.Background())
	task := e.QuickBackup(ctx, []string{filepath.Join(env.work, "project")})
	require.True(t, task.Async())
	<-arch.started
	cancel()

	res, err := waitBatch(t, task)
	require.Equal(t, KindInterrupted, KindOf(err))
	_, statErr := os.Stat(res.Items[0].Destination)
	require.True(t, os.IsNotExist(statErr), "interrupted archive left behind")
	require.Zero(t, e.Stats().TotalBackups)
}

func TestQuickBackup_DetachedContextOutlivesCaller(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile("project/a.txt", "a")
	e := env.engine()

	ctx, cancel := context.WithCancel(context.Background())
	task := e.QuickBackup(context.WithoutCancel(ctx), []string{filepath.Join(env.work, "project")})
	cancel()

	res, err := waitBatch(t, task)
	require.NoError(t, err)
	require.Len(t, res.Succeeded(), 1)
	require.Equal(t, int64(1), e.Stats().TotalBackups)
}

type noSpaceFS struct {
	*testFileSystem
}

func (noSpaceFS) CopyFile(ctx context.Context, src, dst string) error {
	return &os.PathError{Op: "write", Path: dst, Err: syscall.ENOSPC}
}

func TestSnapshot_DiskFull(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", "x")
	env.deps.FileSystem = noSpaceFS{newTestFileSystem()}
	e := env.engine()

	res, err := waitBatch(t, e.QuickBackup(context.Background(), []string{src}))
	require.Equal(t, KindDiskFull, KindOf(err))
	require.NoFileExists(t, res.Items[0].Destination)
}

func TestSnapshot_InterruptedBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile("notes.txt", "x")
	e := env.engine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.QuickBackup(ctx, []string{src}).Wait(context.Background())
	require.Equal(t, KindInterrupted, KindOf(err))
	require.Equal(t, KindInterrupted, res.Items[0].Kind())
}

func TestNotificationsDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Notifications.Enabled = false
	src := env.writeFile("notes.txt", "x")
	e := env.engine()
	_, err := waitBatch(t, e.QuickBackup(context.Background(), []string{src}))
	require.NoError(t, err)
	require.Empty(t, env.notes.titles())
}

func TestSingleSelection(t *testing.T) {
	p, err := SingleSelection([]string{"/a"})
	require.NoError(t, err)
	require.Equal(t, "/a", p)

	_, err = SingleSelection([]string{"/a", "/b"})
	require.Equal(t, KindInvalidSelection, KindOf(err))
	_, err = SingleSelection(nil)
	require.Equal(t, KindInvalidSelection, KindOf(err))
}

func TestNewEngine_ValidatesDependencies(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Archive = nil
	_, err := NewEngine(context.Background(), env.cfg, env.deps, testLogger())
	require.Equal(t, KindInvalidArgument, KindOf(err))
	require.Contains(t, err.Error(), "archive adapter not available")
}

func TestNewEngine_PanicsWithoutLogger(t *testing.T) {
	env := newTestEnv(t)
	require.Panics(t, func() {
		_, _ = NewEngine(context.Background(), env.cfg, env.deps, nil)
	})
}

func TestEngineClose_RejectsNewBackgroundWork(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile("project/a.txt", "a")
	e, err := NewEngine(context.Background(), env.cfg, env.deps, testLogger(), WithClock(env.clock.Now))
	require.NoError(t, err)
	e.Close()

	_, err = waitBatch(t, e.QuickBackup(context.Background(), []string{filepath.Join(env.work, "project")}))
	require.ErrorIs(t, err, errEngineClosed)
}
