package usecase

import (
	"bytes"
	"context"
)

// ComparisonStatus is the result of comparing a backup with its original.
type ComparisonStatus int

const (
	ComparisonIdentical ComparisonStatus = iota
	ComparisonDiffer
	ComparisonOriginalMissing
)

func (s ComparisonStatus) String() string {
	switch s {
	case ComparisonDiffer:
		return "differ"
	case ComparisonOriginalMissing:
		return "original missing"
	default:
		return "identical"
	}
}

const binaryDiffMessage = "Binary files differ"

// Comparison is the outcome of Compare.
type Comparison struct {
	Status   ComparisonStatus
	Backup   string
	Original string
	// Diff is never empty when Status is ComparisonDiffer: unified diff text,
	// or a one-line note for binary content and line-ending changes.
	Diff   string
	Binary bool
}

// Message renders the comparison for display.
func (c Comparison) Message() string {
	switch c.Status {
	case ComparisonIdentical:
		return "Files are identical"
	case ComparisonOriginalMissing:
		return "Original file not found:\n" + c.Original
	}
	return c.Diff
}

// Compare diffs a single-file backup against original. An empty original
// means the path reconstructed from the backup name. Archives are rejected
// with InvalidSelection.
func (e *Engine) Compare(ctx context.Context, backupPath, original string) (Comparison, error) {
	fs := e.deps.FileSystem
	rec, err := e.resolveBackup(ctx, backupPath)
	if err != nil {
		return Comparison{}, err
	}
	if rec.Kind == CompressedArchive {
		return Comparison{}, InvalidSelection.New("archive backups cannot be compared: %s", fs.Base(rec.Path)).
			WithProperty(pathProperty, rec.Path)
	}

	cmp := Comparison{Backup: rec.Path, Original: fs.Join(fs.Dir(rec.Path), rec.OriginalName)}
	if original != "" {
		abs, err := fs.Abs(ctx, original)
		if err != nil {
			return Comparison{}, classifyFSError(fs, err, "resolve original", original)
		}
		cmp.Original = abs
	}

	info, err := fs.Stat(ctx, cmp.Original)
	if err != nil {
		if fs.IsNotExist(err) {
			cmp.Status = ComparisonOriginalMissing
			return cmp, nil
		}
		return Comparison{}, classifyFSError(fs, err, "stat original", cmp.Original)
	}
	if info.IsDir() {
		return Comparison{}, InvalidSelection.New("original is a directory: %s", cmp.Original).
			WithProperty(pathProperty, cmp.Original)
	}

	left, err := fs.ReadFile(ctx, rec.Path)
	if err != nil {
		return Comparison{}, classifyFSError(fs, err, "read backup", rec.Path)
	}
	right, err := fs.ReadFile(ctx, cmp.Original)
	if err != nil {
		return Comparison{}, classifyFSError(fs, err, "read original", cmp.Original)
	}
	if bytes.Equal(left, right) {
		cmp.Status = ComparisonIdentical
		return cmp, nil
	}

	cmp.Status = ComparisonDiffer
	if isBinary(left) || isBinary(right) {
		cmp.Binary = true
		cmp.Diff = binaryDiffMessage
		return cmp, nil
	}
	diff, err := e.deps.Diff.Unified(ctx, left, right, cmp.Backup, cmp.Original)
	if err != nil {
		return Comparison{}, IOError.Wrap(err, "render diff")
	}
	if diff == "" {
		// only trailing newline or line ending differences
		diff = "Files differ in line endings"
	}
	cmp.Diff = diff
	return cmp, nil
}

func isBinary(data []byte) bool {
	const sniff = 8000
	if len(data) > sniff {
		data = data[:sniff]
	}
	return bytes.IndexByte(data, 0) >= 0
}
