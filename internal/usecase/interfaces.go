package usecase

import (
	"context"
	"time"
)

// Dependencies represents all external dependencies needed by use cases
type Dependencies struct {
	FileSystem   FileSystemPort
	Archive      ArchivePort
	Diff         DiffPort
	Config       ConfigPort
	Settings     SettingsPort
	Stats        StatsPort
	Lock         LockPort
	Notification NotificationPort
}

// Ports define the interfaces that use cases need (hexagonal architecture)

// FileSystemPort defines filesystem operations needed by use cases
type FileSystemPort interface {
	// Core file operations
	ReadFile(ctx context.Context, path string) ([]byte, error)
	CreateDir(ctx context.Context, path string, perm int) error
	Remove(ctx context.Context, path string) error
	RemoveAll(ctx context.Context, path string) error
	Move(ctx context.Context, src, dst string) error
	Stat(ctx context.Context, path string) (FileInfo, error)
	Lstat(ctx context.Context, path string) (FileInfo, error)

	// Directory operations
	Walk(ctx context.Context, root string, walkFn WalkFunc) error
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)
	Glob(ctx context.Context, pattern string) ([]string, error)

	// CreateExclusive creates an empty file and fails if path exists.
	CreateExclusive(ctx context.Context, path string, perm int) error
	// CopyFile copies src over dst through a temporary sibling and an atomic
	// rename, preserving permission bits and modification time.
	CopyFile(ctx context.Context, src, dst string) error
	Chtimes(ctx context.Context, path string, atime, mtime time.Time) error

	// Path operations
	Abs(ctx context.Context, path string) (string, error)
	Join(elements ...string) string
	Base(path string) string
	Dir(path string) string
	Clean(path string) string

	// Error classification
	IsNotExist(err error) bool
	IsExist(err error) bool
	IsPermission(err error) bool
	IsNoSpace(err error) bool
}

// ArchivePort creates and extracts gzip-compressed tar archives.
type ArchivePort interface {
	// Create archives srcDir with Base(srcDir) as the root entry and
	// atomically replaces dst with the result.
	Create(ctx context.Context, srcDir, dst string) error
	// Extract unpacks archivePath into destDir, renaming the archive root
	// entry to rootName. Unreadable archives yield ArchiveCorrupt.
	Extract(ctx context.Context, archivePath, destDir, rootName string) error
}

// DiffPort renders unified diffs.
type DiffPort interface {
	Unified(ctx context.Context, from, to []byte, fromLabel, toLabel string) (string, error)
}

// ConfigPort defines configuration operations needed by use cases
type ConfigPort interface {
	Load(ctx context.Context, path string) (ConfigFile, error)
	Save(ctx context.Context, path string, cfg ConfigFile) error
}

// SettingsPort persists the single-line key files.
type SettingsPort interface {
	// LoadBackupRoot returns "" when the file is missing or blank.
	LoadBackupRoot(ctx context.Context, path string) (string, error)
	SaveBackupRoot(ctx context.Context, path, root string) error
	LoadRetention(ctx context.Context, path string) (RetentionPolicy, error)
	SaveRetention(ctx context.Context, path string, policy RetentionPolicy) error
}

// StatsPort persists the statistics record.
type StatsPort interface {
	Load(ctx context.Context, path string) (StatsSnapshot, error)
	Save(ctx context.Context, path string, stats StatsSnapshot) error
}

// LockPort defines inter-process locking of state files.
type LockPort interface {
	// Lock blocks until the lock at path is held or ctx is done.
	Lock(ctx context.Context, path string) (LockHandle, error)
}

// NotificationPort defines desktop notification operations needed by use cases
type NotificationPort interface {
	// Send delivers a notification. Delivery failures are not reported.
	Send(ctx context.Context, n Notification) error
}
