package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/renameio"
)

// Adapter implements usecase.ArchivePort with gzip-compressed tar files.
type Adapter struct {
	logger *slog.Logger
	level  int
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithCompressionLevel sets the gzip level used by Create.
func WithCompressionLevel(level int) Option {
	return func(a *Adapter) {
		if level >= gzip.HuffmanOnly && level <= gzip.BestCompression {
			a.level = level
		}
	}
}

// New creates a new archive adapter.
func New(logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		panic("archive adapter requires logger")
	}
	a := &Adapter{logger: logger, level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// archiveWriters chains the pending file, gzip and tar writers.
type archiveWriters struct {
	pending *renameio.PendingFile
	gz      *gzip.Writer
	tw      *tar.Writer
}

// finish flushes tar and gzip in order and renames the pending file over dst.
func (aw *archiveWriters) finish() error {
	if err := aw.tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := aw.gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return aw.pending.CloseAtomicallyReplace()
}

// Create archives srcDir into dst. The archive has a single root named after
// srcDir. A symlinked srcDir is followed and its target's contents are stored
// under the link's name. Symlinks inside the tree are stored as links;
// sockets and devices are skipped.
func (a *Adapter) Create(ctx context.Context, srcDir, dst string) error {
	srcDir = filepath.Clean(srcDir)
	root, err := filepath.EvalSymlinks(srcDir)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "archive", Path: srcDir, Err: syscall.ENOTDIR}
	}

	pending, err := renameio.TempFile(filepath.Dir(dst), dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	gz, err := gzip.NewWriterLevel(pending, a.level)
	if err != nil {
		return fmt.Errorf("create gzip writer: %w", err)
	}
	aw := &archiveWriters{pending: pending, gz: gz, tw: tar.NewWriter(gz)}

	rootName := filepath.Base(srcDir)
	var entries int
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		added, err := a.addEntry(ctx, aw.tw, root, rootName, path, d)
		if added {
			entries++
		}
		return err
	})
	if walkErr != nil {
		return walkErr
	}
	if err := aw.finish(); err != nil {
		return err
	}
	a.logger.Debug("archive created", "src", srcDir, "dst", dst, "entries", entries)
	return nil
}

func (a *Adapter) addEntry(ctx context.Context, tw *tar.Writer, root, rootName, path string, d fs.DirEntry) (bool, error) {
	info, err := d.Info()
	if err != nil {
		return false, err
	}
	mode := info.Mode()
	if !mode.IsRegular() && !mode.IsDir() && mode&fs.ModeSymlink == 0 {
		a.logger.Debug("skipping special file", "path", path, "mode", mode.String())
		return false, nil
	}

	var link string
	if mode&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return false, err
		}
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false, err
	}
	hdr.Name = filepath.ToSlash(filepath.Join(rootName, rel))
	if mode.IsDir() {
		hdr.Name += "/"
	}
	hdr.Format = tar.FormatPAX

	if err := tw.WriteHeader(hdr); err != nil {
		return false, fmt.Errorf("write header %s: %w", hdr.Name, err)
	}
	if !mode.IsRegular() {
		return true, nil
	}

	f, err := os.Open(path) // #nosec G304 - path comes from walking the source directory
	if err != nil {
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := io.Copy(tw, &contextReader{ctx: ctx, r: f}); err != nil {
		return false, fmt.Errorf("archive %s: %w", path, err)
	}
	return true, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
