package usecase

import (
	"strconv"
	"time"
)

// Config contains the runtime configuration held by the Engine.
type Config struct {
	HomeDir        string
	ConfigDir      string
	BackupRoot     string
	Retention      RetentionPolicy
	AsyncThreshold int64
	SearchRoots    []string
	Notifications  NotificationsConfig
	Verbose        bool
}

// RetentionPolicy caps the number of backups kept per source family.
// MaxGenerations <= 0 means unlimited.
type RetentionPolicy struct {
	MaxGenerations int
}

// Unlimited reports whether the policy keeps every backup.
func (p RetentionPolicy) Unlimited() bool {
	return p.MaxGenerations <= 0
}

func (p RetentionPolicy) String() string {
	if p.Unlimited() {
		return "unlimited"
	}
	return strconv.Itoa(p.MaxGenerations)
}

// Settings is the user-mutable part of the configuration.
type Settings struct {
	BackupRoot string
	Retention  RetentionPolicy
}

// FileInfo represents file information.
type FileInfo interface {
	Name() string
	Size() int64
	Mode() int
	ModTime() time.Time
	IsDir() bool
	IsSymlink() bool
	IsRegular() bool
	Sys() interface{}
}

// WalkFunc is called for each file/directory during Walk.
type WalkFunc func(path string, info FileInfo, err error) error

// DirEntry represents a directory entry.
type DirEntry interface {
	Name() string
	IsDir() bool
}

// SourceKind is the kind of a selected source path.
type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceDirectory
)

func (k SourceKind) String() string {
	if k == SourceDirectory {
		return "directory"
	}
	return "file"
}

// StorageKind is how a backup is stored on disk.
type StorageKind int

const (
	CopiedFile StorageKind = iota
	CompressedArchive
)

func (k StorageKind) String() string {
	if k == CompressedArchive {
		return "archive"
	}
	return "copy"
}

// BackupRecord is the structured form of a backup file name plus the
// filesystem facts gathered at discovery time.
type BackupRecord struct {
	// Base is the part of the name before the backup marker.
	Base string
	// Suffix is the part after the timestamp (".tar.gz" for archives).
	Suffix string
	// OriginalName is the name of the source that was backed up.
	OriginalName string
	Created      time.Time
	Stamp        string
	Kind         StorageKind
	Path         string
	Size         int64
	ModTime      time.Time
}

// StatsSnapshot holds lifetime backup counters.
type StatsSnapshot struct {
	TotalBackups int64
	TotalBytes   int64
}

// Severity of a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Notification is delivered to the notification sink.
type Notification struct {
	Title    string
	Message  string
	Severity Severity
}

// LockHandle releases a held lock.
type LockHandle interface {
	Unlock() error
}
