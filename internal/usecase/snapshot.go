package usecase

import (
	"context"
)

const snapshotPerm = 0o600

// sourceInfo is a selected path after resolution.
type sourceInfo struct {
	Path string
	Name string
	Kind SourceKind
	Size int64
}

func resolveSource(ctx context.Context, fs FileSystemPort, path string) (sourceInfo, error) {
	abs, err := fs.Abs(ctx, path)
	if err != nil {
		return sourceInfo{}, classifyFSError(fs, err, "resolve source", path)
	}
	info, err := fs.Stat(ctx, abs)
	if err != nil {
		return sourceInfo{}, classifyFSError(fs, err, "stat source", abs)
	}
	src := sourceInfo{Path: abs, Name: fs.Base(abs), Kind: SourceFile, Size: info.Size()}
	switch {
	case info.IsDir():
		src.Kind = SourceDirectory
	case !info.IsRegular():
		return sourceInfo{}, InvalidSelection.New("not a regular file or directory: %s", abs).
			WithProperty(pathProperty, abs)
	}
	return src, nil
}

// writeSnapshot stores src at dest and returns the stored size. dest is
// reserved with an exclusive create first, so two writers racing for one
// name never share a file. On failure nothing is left at dest.
func writeSnapshot(ctx context.Context, deps *Dependencies, src sourceInfo, dest string, bc *backupContext) (int64, error) {
	fs := deps.FileSystem
	if ctx.Err() != nil {
		return 0, interruptedError(ctx)
	}
	if err := fs.CreateExclusive(ctx, dest, snapshotPerm); err != nil {
		return 0, classifyFSError(fs, err, "reserve destination", dest)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := fs.Remove(context.WithoutCancel(ctx), dest); err != nil && !fs.IsNotExist(err) {
			bc.warnf("cleanup '%s': %v", dest, err)
		}
	}()

	var err error
	if src.Kind == SourceDirectory {
		bc.vlogf("[snapshot] archive %s -> %s", src.Path, dest)
		err = deps.Archive.Create(ctx, src.Path, dest)
	} else {
		bc.vlogf("[snapshot] copy %s -> %s", src.Path, dest)
		err = fs.CopyFile(ctx, src.Path, dest)
	}
	if err != nil {
		if ctx.Err() != nil {
			return 0, interruptedError(ctx)
		}
		return 0, classifyFSError(fs, err, "write snapshot", src.Path)
	}

	info, err := fs.Stat(ctx, dest)
	if err != nil {
		return 0, classifyFSError(fs, err, "stat snapshot", dest)
	}
	committed = true
	return info.Size(), nil
}
