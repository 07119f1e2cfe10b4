package usecase

import (
	"sort"
	"strings"
	"time"
)

const (
	backupMarker = "_backup_"
	// StampLayout is the timestamp embedded in every backup name.
	StampLayout   = "2006-01-02_15-04-05"
	archiveSuffix = ".tar.gz"
	stampGlob     = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]_[0-9][0-9]-[0-9][0-9]-[0-9][0-9]"
)

// SplitName splits a file name into stem and suffix. The suffix is the
// last dot-separated extension; leading-dot names and names ending in a
// dot have none.
func SplitName(name string) (stem, suffix string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}

// FormatStamp renders now at second resolution.
func FormatStamp(now time.Time) string {
	return now.Format(StampLayout)
}

// Encode returns the backup name for a source called name.
func Encode(name string, kind SourceKind, now time.Time) string {
	base, suffix := familyOf(name, kind)
	return base + backupMarker + FormatStamp(now) + suffix
}

func familyOf(name string, kind SourceKind) (base, suffix string) {
	if kind == SourceDirectory {
		return name, archiveSuffix
	}
	return SplitName(name)
}

// IsBackupName reports whether name carries the marker followed by a
// well-formed timestamp.
func IsBackupName(name string) bool {
	_, ok := Parse(name)
	return ok
}

// Decode returns the original name for a backup name: the part before the
// marker plus whatever followed the timestamp. Non-backup names are
// returned unchanged.
func Decode(name string) string {
	rec, ok := Parse(name)
	if !ok {
		return name
	}
	return rec.Base + rec.Suffix
}

// Parse splits a backup name into its structured form. When the marker
// occurs more than once the last well-formed occurrence wins. The base may
// be empty ("_backup_<stamp>.txt" restores to ".txt") but the original name
// may not: "_backup_<stamp>.tar.gz" would restore onto its own directory.
// Path, Size and ModTime are left for the caller.
func Parse(name string) (BackupRecord, bool) {
	end := len(name)
	for {
		i := strings.LastIndex(name[:end], backupMarker)
		if i < 0 {
			return BackupRecord{}, false
		}
		stampStart := i + len(backupMarker)
		if stampStart+len(StampLayout) <= len(name) {
			stamp := name[stampStart : stampStart+len(StampLayout)]
			if matchStamp(stamp) {
				rec := newRecord(name[:i], stamp, name[stampStart+len(StampLayout):])
				if validOriginalName(rec.OriginalName) {
					return rec, true
				}
			}
		}
		if i == 0 {
			return BackupRecord{}, false
		}
		end = i + len(backupMarker) - 1
	}
}

func validOriginalName(name string) bool {
	return name != "" && name != "." && name != ".."
}

func newRecord(base, stamp, suffix string) BackupRecord {
	rec := BackupRecord{
		Base:   base,
		Suffix: suffix,
		Stamp:  stamp,
		Kind:   CopiedFile,
	}
	if suffix == archiveSuffix {
		rec.Kind = CompressedArchive
		rec.OriginalName = base
	} else {
		rec.OriginalName = base + suffix
	}
	if created, err := time.ParseInLocation(StampLayout, stamp, time.Local); err == nil {
		rec.Created = created
	}
	return rec
}

// matchStamp checks YYYY-MM-DD_HH-MM-SS digit by digit.
func matchStamp(s string) bool {
	if len(s) != len(StampLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch i {
		case 4, 7, 13, 16:
			if s[i] != '-' {
				return false
			}
		case 10:
			if s[i] != '_' {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}

// familyGlob returns the glob matching every backup of base+suffix in dir.
// Matches still need a sameFamily check: the glob cannot tell a base that
// itself ends in a marker apart.
func familyGlob(fs FileSystemPort, dir, base, suffix string) string {
	return fs.Join(dir, escapeGlob(base)+backupMarker+stampGlob+escapeGlob(suffix))
}

func sameFamily(rec BackupRecord, base, suffix string) bool {
	return rec.Base == base && rec.Suffix == suffix
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sortNewestFirst orders by modification time, then by name, both descending.
func sortNewestFirst(fs FileSystemPort, recs []BackupRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].ModTime.Equal(recs[j].ModTime) {
			return recs[i].ModTime.After(recs[j].ModTime)
		}
		ni, nj := fs.Base(recs[i].Path), fs.Base(recs[j].Path)
		if ni != nj {
			return ni > nj
		}
		return recs[i].Path > recs[j].Path
	})
}
