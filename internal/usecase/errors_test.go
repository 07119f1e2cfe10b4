package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyFSError(t *testing.T) {
	fs := newTestFileSystem()
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"permission", &os.PathError{Op: "open", Path: "/x", Err: syscall.EACCES}, KindPermissionDenied},
		{"not exist", os.ErrNotExist, KindNotFound},
		{"exist", &os.PathError{Op: "open", Path: "/x", Err: syscall.EEXIST}, KindDestinationExists},
		{"no space", &os.PathError{Op: "write", Path: "/x", Err: syscall.ENOSPC}, KindDiskFull},
		{"quota", fmt.Errorf("copy: %w", syscall.EDQUOT), KindDiskFull},
		{"canceled", context.Canceled, KindInterrupted},
		{"other", errors.New("boom"), KindIOError},
		{"typed passes through", ArchiveCorrupt.New("bad"), KindArchiveCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyFSError(fs, tt.err, "op", "/x")
			require.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestClassifyFSError_AttachesPath(t *testing.T) {
	err := classifyFSError(newTestFileSystem(), os.ErrNotExist, "stat source", "/data/a.txt")
	require.Equal(t, "/data/a.txt", ErrorPath(err))
	require.Equal(t, "stat source: not found: /data/a.txt", UserMessage(err))
}

func TestKindOf_PlainErrors(t *testing.T) {
	require.Equal(t, KindNone, KindOf(nil))
	require.Equal(t, KindIOError, KindOf(errors.New("x")))
	require.Equal(t, KindInterrupted, KindOf(context.DeadlineExceeded))
	require.Equal(t, KindLockBusy, KindOf(LockBusy.New("busy")))
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, "", UserMessage(nil))
	require.Equal(t, "plain", UserMessage(errors.New("plain")))
	require.Equal(t, "nothing selected", UserMessage(InvalidSelection.New("nothing selected")))
	require.Equal(t, "", ErrorPath(errors.New("plain")))
}
