package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/joomcode/errorx"
)

var (
	// ErrorsNamespace groups every error the engine returns.
	ErrorsNamespace = errorx.NewNamespace("backup")

	// PermissionDenied indicates the OS refused access to a source or destination.
	PermissionDenied = ErrorsNamespace.NewType("permission_denied")
	// NotFound indicates the source vanished between selection and execution.
	NotFound = ErrorsNamespace.NewType("not_found", errorx.NotFound())
	// DestinationExists indicates the exclusive create of a destination failed.
	DestinationExists = ErrorsNamespace.NewType("destination_exists", errorx.Duplicate())
	// DiskFull indicates ENOSPC or a quota error.
	DiskFull = ErrorsNamespace.NewType("disk_full")
	// IOError is any other OS level failure.
	IOError = ErrorsNamespace.NewType("io_error")
	// ArchiveCorrupt indicates an archive that cannot be read during restore.
	ArchiveCorrupt = ErrorsNamespace.NewType("archive_corrupt")
	// InvalidSelection indicates an operation received the wrong number of items.
	InvalidSelection = ErrorsNamespace.NewType("invalid_selection")
	// OriginalMissing indicates compare or restore target is absent.
	OriginalMissing = ErrorsNamespace.NewType("original_missing", errorx.NotFound())
	// InvalidArgument indicates a rejected settings value.
	InvalidArgument = ErrorsNamespace.NewType("invalid_argument")
	// LockBusy indicates a state file lock could not be acquired in time.
	LockBusy = ErrorsNamespace.NewType("lock_busy", errorx.Timeout())
	// Interrupted indicates a canceled context.
	Interrupted = ErrorsNamespace.NewType("interrupted")

	pathProperty = errorx.RegisterPrintableProperty("path")
)

// ErrorKind is the stable, programmatic name of an error type.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindPermissionDenied  ErrorKind = "PermissionDenied"
	KindNotFound          ErrorKind = "NotFound"
	KindDestinationExists ErrorKind = "DestinationExists"
	KindDiskFull          ErrorKind = "DiskFull"
	KindIOError           ErrorKind = "IOError"
	KindArchiveCorrupt    ErrorKind = "ArchiveCorrupt"
	KindInvalidSelection  ErrorKind = "InvalidSelection"
	KindOriginalMissing   ErrorKind = "OriginalMissing"
	KindInvalidArgument   ErrorKind = "InvalidArgument"
	KindLockBusy          ErrorKind = "LockBusy"
	KindInterrupted       ErrorKind = "Interrupted"
)

var kindTypes = []struct {
	kind ErrorKind
	typ  *errorx.Type
}{
	{KindPermissionDenied, PermissionDenied},
	{KindNotFound, NotFound},
	{KindDestinationExists, DestinationExists},
	{KindDiskFull, DiskFull},
	{KindIOError, IOError},
	{KindArchiveCorrupt, ArchiveCorrupt},
	{KindInvalidSelection, InvalidSelection},
	{KindOriginalMissing, OriginalMissing},
	{KindInvalidArgument, InvalidArgument},
	{KindLockBusy, LockBusy},
	{KindInterrupted, Interrupted},
}

// KindOf returns the kind of err. Errors that did not pass through the
// engine boundary are reported as IOError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, kt := range kindTypes {
		if errorx.IsOfType(err, kt.typ) {
			return kt.kind
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindInterrupted
	}
	return KindIOError
}

// UserMessage returns a short message suitable for a notification body.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var xe *errorx.Error
	if errors.As(err, &xe) && xe.Message() != "" {
		return xe.Message()
	}
	return err.Error()
}

// ErrorPath returns the path attached to an engine error, if any.
func ErrorPath(err error) string {
	var xe *errorx.Error
	if !errors.As(err, &xe) {
		return ""
	}
	if v, ok := xe.Property(pathProperty); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// classifyFSError converts a raw filesystem error into an engine error.
// Errors that already carry an engine type pass through unchanged.
func classifyFSError(fs FileSystemPort, err error, op, path string) error {
	if err == nil {
		return nil
	}
	for _, kt := range kindTypes {
		if errorx.IsOfType(err, kt.typ) {
			return err
		}
	}
	var typ *errorx.Type
	var reason string
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		typ, reason = Interrupted, "interrupted"
	case fs.IsPermission(err):
		typ, reason = PermissionDenied, "permission denied"
	case fs.IsNotExist(err):
		typ, reason = NotFound, "not found"
	case fs.IsExist(err):
		typ, reason = DestinationExists, "already exists"
	case fs.IsNoSpace(err):
		typ, reason = DiskFull, "no space left on device"
	default:
		typ, reason = IOError, "i/o error"
	}
	msg := reason
	if op = strings.TrimSpace(op); op != "" {
		msg = op + ": " + reason
	}
	if path != "" {
		msg += ": " + path
	}
	return typ.Wrap(err, "%s", msg).WithProperty(pathProperty, path)
}

func interruptedError(ctx context.Context) error {
	return Interrupted.Wrap(ctx.Err(), "operation interrupted")
}
