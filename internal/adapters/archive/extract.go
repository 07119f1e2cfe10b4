package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/arumata/nautback/internal/usecase"
)

// Extract unpacks archivePath into destDir. The first path component of
// every entry is replaced by rootName. Entries that would land outside
// destDir/rootName make the archive ArchiveCorrupt.
func (a *Adapter) Extract(ctx context.Context, archivePath, destDir, rootName string) error {
	if rootName == "" || strings.ContainsRune(rootName, filepath.Separator) || rootName == "." || rootName == ".." {
		return usecase.InvalidArgument.New("invalid restore name %q", rootName)
	}
	f, err := os.Open(archivePath) // #nosec G304 - path is controlled by usecase
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return usecase.ArchiveCorrupt.Wrap(err, "open archive %s", filepath.Base(archivePath))
	}
	defer func() {
		_ = gz.Close()
	}()

	root := filepath.Join(destDir, rootName)
	x := &extractor{root: root}
	tr := tar.NewReader(gz)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return usecase.ArchiveCorrupt.Wrap(err, "read archive %s", filepath.Base(archivePath))
		}
		if err := x.entry(ctx, tr, hdr); err != nil {
			return err
		}
	}
	if err := x.finish(); err != nil {
		return err
	}
	a.logger.Debug("archive extracted", "archive", archivePath, "dest", root, "entries", x.count)
	return nil
}

type dirTimes struct {
	path  string
	mtime time.Time
}

type extractor struct {
	root  string
	dirs  []dirTimes
	count int
}

// targetPath maps an entry name onto the restore root.
func (x *extractor) targetPath(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", usecase.ArchiveCorrupt.New("unsafe path in archive: %s", name)
	}
	rest := ""
	if i := strings.IndexByte(clean, '/'); i >= 0 {
		rest = clean[i+1:]
	}
	target := filepath.Join(x.root, filepath.FromSlash(rest))
	if target != x.root && !strings.HasPrefix(target, x.root+string(os.PathSeparator)) {
		return "", usecase.ArchiveCorrupt.New("unsafe path in archive: %s", name)
	}
	if err := x.checkParents(target); err != nil {
		return "", err
	}
	return target, nil
}

// checkParents refuses to write through a symlink created inside the root.
func (x *extractor) checkParents(target string) error {
	rel, err := filepath.Rel(x.root, filepath.Dir(target))
	if err != nil || rel == "." {
		return nil
	}
	cur := x.root
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return usecase.ArchiveCorrupt.New("archive entry traverses symlink: %s", cur)
		}
	}
	return nil
}

func (x *extractor) entry(ctx context.Context, tr *tar.Reader, hdr *tar.Header) error {
	target, err := x.targetPath(hdr.Name)
	if err != nil {
		return err
	}
	mode := fs.FileMode(hdr.Mode).Perm() // #nosec G115 - tar modes fit in FileMode

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, 0o700); err != nil {
			return err
		}
		if err := os.Chmod(target, mode|0o700); err != nil {
			return err
		}
		x.dirs = append(x.dirs, dirTimes{path: target, mtime: hdr.ModTime})
	case tar.TypeReg:
		if err := x.writeFile(ctx, tr, target, hdr, mode); err != nil {
			return err
		}
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := removeNonDir(target); err != nil {
			return err
		}
		if err := os.Symlink(hdr.Linkname, target); err != nil {
			return err
		}
	case tar.TypeLink:
		source, err := x.targetPath(hdr.Linkname)
		if err != nil {
			return err
		}
		if err := removeNonDir(target); err != nil {
			return err
		}
		if err := os.Link(source, target); err != nil {
			return err
		}
	default:
		return nil
	}
	x.count++
	return nil
}

func (x *extractor) writeFile(ctx context.Context, tr *tar.Reader, target string, hdr *tar.Header, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := removeNonDir(target); err != nil {
		return err
	}
	// #nosec G304 - target is validated by targetPath
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	_, copyErr := io.CopyN(out, &contextReader{ctx: ctx, r: tr}, hdr.Size)
	closeErr := out.Close()
	if copyErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return usecase.ArchiveCorrupt.Wrap(copyErr, "extract %s", hdr.Name)
	}
	if closeErr != nil {
		return closeErr
	}
	if err := os.Chmod(target, mode); err != nil {
		return err
	}
	return os.Chtimes(target, hdr.ModTime, hdr.ModTime)
}

// finish applies directory times after their contents are written.
func (x *extractor) finish() error {
	if x.count == 0 {
		return usecase.ArchiveCorrupt.New("archive is empty")
	}
	for i := len(x.dirs) - 1; i >= 0; i-- {
		d := x.dirs[i]
		if err := os.Chtimes(d.path, d.mtime, d.mtime); err != nil {
			return fmt.Errorf("set times on %s: %w", d.path, err)
		}
	}
	return nil
}

// removeNonDir clears an existing file or link so the entry replaces it
// instead of writing through it.
func removeNonDir(target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("cannot replace directory %s with a file", target)
	}
	return os.Remove(target)
}
