package usecase

import (
	"context"
	"iter"
)

type family struct {
	base   string
	suffix string
}

// History returns every backup of source found in the source directory,
// the backup root and the configured search roots, newest first. An empty
// history sends a "No Backups Found" notification.
func (e *Engine) History(ctx context.Context, source string) ([]BackupRecord, error) {
	var out []BackupRecord
	for rec, err := range e.HistorySeq(ctx, source) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		e.notify(ctx, Notification{
			Title:   "No Backups Found",
			Message: "No backups found for:\n" + baseOf(source),
		})
	}
	return out, nil
}

// HistorySeq is the lazy form of History. Every iteration rescans the
// filesystem.
func (e *Engine) HistorySeq(ctx context.Context, source string) iter.Seq2[BackupRecord, error] {
	return func(yield func(BackupRecord, error) bool) {
		recs, err := e.findHistory(ctx, source)
		if err != nil {
			yield(BackupRecord{}, err)
			return
		}
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (e *Engine) findHistory(ctx context.Context, source string) ([]BackupRecord, error) {
	fs := e.deps.FileSystem
	abs, err := fs.Abs(ctx, source)
	if err != nil {
		return nil, classifyFSError(fs, err, "resolve source", source)
	}
	families, err := e.historyFamilies(ctx, abs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var recs []BackupRecord
	for _, root := range e.historyRoots(fs.Dir(abs)) {
		if ctx.Err() != nil {
			return nil, interruptedError(ctx)
		}
		for _, fam := range families {
			found, err := listFamily(ctx, fs, root, fam.base, fam.suffix)
			if err != nil {
				return nil, classifyFSError(fs, err, "search history", root)
			}
			for _, rec := range found {
				if _, dup := seen[rec.Path]; dup {
					continue
				}
				seen[rec.Path] = struct{}{}
				recs = append(recs, rec)
			}
		}
	}
	sortNewestFirst(fs, recs)
	e.bc.vlogf("[history] %s: %d backup(s)", abs, len(recs))
	return recs, nil
}

// historyFamilies derives the backup families to look for. A selected backup
// resolves to its own family; a vanished source matches both kinds.
func (e *Engine) historyFamilies(ctx context.Context, abs string) ([]family, error) {
	fs := e.deps.FileSystem
	name := fs.Base(abs)
	if rec, ok := Parse(name); ok {
		return []family{{rec.Base, rec.Suffix}}, nil
	}
	info, err := fs.Stat(ctx, abs)
	if err != nil {
		if !fs.IsNotExist(err) {
			return nil, classifyFSError(fs, err, "stat source", abs)
		}
		fileBase, fileSuffix := familyOf(name, SourceFile)
		dirBase, dirSuffix := familyOf(name, SourceDirectory)
		return []family{{fileBase, fileSuffix}, {dirBase, dirSuffix}}, nil
	}
	kind := SourceFile
	if info.IsDir() {
		kind = SourceDirectory
	}
	base, suffix := familyOf(name, kind)
	return []family{{base, suffix}}, nil
}

func (e *Engine) historyRoots(sourceDir string) []string {
	fs := e.deps.FileSystem
	settings := e.Settings()
	candidates := append([]string{sourceDir, settings.BackupRoot}, e.cfg.SearchRoots...)
	seen := make(map[string]struct{}, len(candidates))
	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		c = fs.Clean(c)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		roots = append(roots, c)
	}
	return roots
}
