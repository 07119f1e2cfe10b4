package usecase

import (
	"context"
)

// listFamily returns every backup in dir belonging to base+suffix, newest first.
func listFamily(ctx context.Context, fs FileSystemPort, dir, base, suffix string) ([]BackupRecord, error) {
	matches, err := fs.Glob(ctx, familyGlob(fs, dir, base, suffix))
	if err != nil {
		return nil, err
	}
	recs := make([]BackupRecord, 0, len(matches))
	for _, m := range matches {
		rec, ok := Parse(fs.Base(m))
		if !ok || !sameFamily(rec, base, suffix) {
			continue
		}
		info, err := fs.Lstat(ctx, m)
		if err != nil || !info.IsRegular() {
			continue
		}
		rec.Path = m
		rec.Size = info.Size()
		rec.ModTime = info.ModTime()
		recs = append(recs, rec)
	}
	sortNewestFirst(fs, recs)
	return recs, nil
}

// enforceRetention keeps the newest policy.MaxGenerations backups of the
// family that written belongs to and returns the removed paths. Failures are
// logged and skipped.
func enforceRetention(
	ctx context.Context,
	deps *Dependencies,
	written string,
	policy RetentionPolicy,
	bc *backupContext,
) []string {
	if policy.Unlimited() {
		return nil
	}
	fs := deps.FileSystem
	rec, ok := Parse(fs.Base(written))
	if !ok {
		bc.vlogf("[rotate] %s is not a backup name, skipping", written)
		return nil
	}
	family, err := listFamily(ctx, fs, fs.Dir(written), rec.Base, rec.Suffix)
	if err != nil {
		bc.warnf("rotation(list): %v", err)
		return nil
	}
	if len(family) <= policy.MaxGenerations {
		return nil
	}

	var removed []string
	for _, old := range family[policy.MaxGenerations:] {
		if ctx.Err() != nil {
			bc.warnf("rotation interrupted: %v", ctx.Err())
			break
		}
		bc.logf("[rotate:count] remove %s (exceeds %d)", old.Path, policy.MaxGenerations)
		if err := fs.Remove(ctx, old.Path); err != nil {
			bc.warnf("rotation(remove %s): %v", old.Path, err)
			continue
		}
		removed = append(removed, old.Path)
	}
	return removed
}
