package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const statusNotSet = "(not set)"

// statusPalette holds ANSI escape sequences for colorized status output.
// When useColor is false, all fields are empty strings (no-op coloring).
type statusPalette struct {
	reset    string
	bold     string
	dim      string
	green    string
	red      string
	yellow   string
	cyan     string
	boldCyan string
}

func newStatusPalette(useColor bool) statusPalette {
	if !useColor {
		return statusPalette{}
	}
	return statusPalette{
		reset:    "\033[0m",
		bold:     "\033[1m",
		dim:      "\033[2m",
		green:    "\033[32m",
		red:      "\033[31m",
		yellow:   "\033[33m",
		cyan:     "\033[36m",
		boldCyan: "\033[1;36m",
	}
}

// StatusOptions describes status output behavior.
type StatusOptions struct {
	// Source, when set, adds a backup summary for that path.
	Source string
}

// StatusReport contains status information for rendering.
type StatusReport struct {
	Global StatusGlobal
	Stats  StatsSnapshot
	Source *StatusSource
}

// StatusGlobal contains global configuration checks.
type StatusGlobal struct {
	ConfigFile    StatusPath
	ConfigDir     StatusPath
	BackupRoot    StatusPath
	LogDir        StatusPath
	Retention     RetentionPolicy
	Notifications bool
}

// StatusPath describes a path and its availability.
type StatusPath struct {
	Path   string
	Exists bool
	Source string
}

// StatusSource summarizes the backups of one source.
type StatusSource struct {
	Path    string
	Exists  bool
	Backups StatusBackups
}

// StatusBackups contains backup scan results.
type StatusBackups struct {
	Count      int
	TotalSize  int64
	LastBackup time.Time
	Latest     string
}

// Status gathers configuration, statistics and optionally the backups of
// one source.
func (e *Engine) Status(ctx context.Context, opts StatusOptions) (StatusReport, error) {
	if ctx.Err() != nil {
		return StatusReport{}, interruptedError(ctx)
	}
	if e.deps.Config == nil {
		return StatusReport{}, InvalidArgument.New("config adapter not available")
	}
	fs := e.deps.FileSystem
	home := e.cfg.HomeDir

	configPath := fs.Join(e.cfg.ConfigDir, ConfigFileName)
	configExists, err := pathExists(ctx, fs, configPath)
	if err != nil {
		return StatusReport{}, classifyFSError(fs, err, "check config path", configPath)
	}
	cfgFile, err := e.deps.Config.Load(ctx, configPath)
	if err != nil {
		return StatusReport{}, IOError.Wrap(err, "load config")
	}
	configDirExists, err := pathExists(ctx, fs, e.cfg.ConfigDir)
	if err != nil {
		return StatusReport{}, classifyFSError(fs, err, "check config dir", e.cfg.ConfigDir)
	}

	settings := e.Settings()
	rootExists, err := pathExists(ctx, fs, settings.BackupRoot)
	if err != nil {
		return StatusReport{}, classifyFSError(fs, err, "check backup root", settings.BackupRoot)
	}
	rootSource := "default"
	if root, _ := e.deps.Settings.LoadBackupRoot(ctx, e.settingsPath(backupRootFileName)); root != "" {
		rootSource = "from " + backupRootFileName
	}

	logDir := strings.TrimSpace(cfgFile.Logging.Dir)
	var logDirExists bool
	if logDir != "" {
		logDirExists, err = pathExists(ctx, fs, normalizePath(fs, logDir, home))
		if err != nil {
			return StatusReport{}, classifyFSError(fs, err, "check log dir", logDir)
		}
	}
	logDirSource := "default"
	if configExists && logDir != DefaultConfigFile().Logging.Dir {
		logDirSource = "from config"
	}

	report := StatusReport{
		Global: StatusGlobal{
			ConfigFile:    StatusPath{Path: configPath, Exists: configExists},
			ConfigDir:     StatusPath{Path: e.cfg.ConfigDir, Exists: configDirExists},
			BackupRoot:    StatusPath{Path: settings.BackupRoot, Exists: rootExists, Source: rootSource},
			LogDir:        StatusPath{Path: logDir, Exists: logDirExists, Source: logDirSource},
			Retention:     settings.Retention,
			Notifications: cfgFile.Notifications.Enabled,
		},
		Stats: e.Stats(),
	}

	if strings.TrimSpace(opts.Source) != "" {
		src, err := e.statusSource(ctx, opts.Source)
		if err != nil {
			return report, err
		}
		report.Source = src
	}
	contractStatusPaths(&report, home)
	return report, nil
}

func (e *Engine) statusSource(ctx context.Context, source string) (*StatusSource, error) {
	fs := e.deps.FileSystem
	abs, err := fs.Abs(ctx, source)
	if err != nil {
		return nil, classifyFSError(fs, err, "resolve source", source)
	}
	exists, err := pathExists(ctx, fs, abs)
	if err != nil {
		return nil, classifyFSError(fs, err, "check source", abs)
	}
	recs, err := e.findHistory(ctx, abs)
	if err != nil {
		return nil, err
	}
	out := &StatusSource{Path: abs, Exists: exists}
	for _, rec := range recs {
		out.Backups.Count++
		out.Backups.TotalSize += rec.Size
	}
	if len(recs) > 0 {
		out.Backups.LastBackup = recs[0].ModTime
		out.Backups.Latest = recs[0].Path
	}
	return out, nil
}

// FormatStatus renders the status report into human-readable output.
func FormatStatus(report StatusReport, useColor bool) string {
	p := newStatusPalette(useColor)
	var b strings.Builder

	fmt.Fprintf(&b, "%sNautilus Backup Status%s\n", p.bold, p.reset)
	b.WriteString(strings.Repeat("─", 54))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%sConfiguration:%s\n", p.boldCyan, p.reset)
	appendStatusLine(&b, "Config file:", formatPathStatus(report.Global.ConfigFile, p))
	appendStatusLine(&b, "Config dir:", formatPathStatus(report.Global.ConfigDir, p))
	appendStatusLine(&b, "Backup folder:", formatPathStatus(report.Global.BackupRoot, p))
	appendStatusLine(&b, "Log dir:", formatPathStatus(report.Global.LogDir, p))
	appendStatusLine(&b, "Auto-cleanup:", formatRetention(report.Global.Retention, p))
	appendStatusLine(&b, "Notifications:", formatBoolStatus(report.Global.Notifications, p))

	b.WriteString("\n")
	fmt.Fprintf(&b, "%sStatistics:%s\n", p.boldCyan, p.reset)
	appendStatusLine(&b, "Total backups:", fmt.Sprintf("%d", report.Stats.TotalBackups))
	appendStatusLine(&b, "Total size:", formatBackupSize(report.Stats.TotalBytes))

	if report.Source == nil {
		return b.String()
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%sSource:%s %s\n", p.boldCyan, p.reset, report.Source.Path)
	appendStatusLine(&b, "Exists:", formatBoolStatus(report.Source.Exists, p))
	appendStatusLine(&b, "Backups:", fmt.Sprintf("%d", report.Source.Backups.Count))
	appendStatusLine(&b, "Last backup:", formatBackupTime(report.Source.Backups.LastBackup, p))
	appendStatusLine(&b, "Latest:", formatTextValue(report.Source.Backups.Latest, p))
	appendStatusLine(&b, "Size:", formatBackupSize(report.Source.Backups.TotalSize))
	return b.String()
}

// FormatHistory renders backup records one per line, newest first.
func FormatHistory(source string, recs []BackupRecord, useColor bool) string {
	p := newStatusPalette(useColor)
	var b strings.Builder
	fmt.Fprintf(&b, "%sBackups of %s%s\n", p.bold, source, p.reset)
	if len(recs) == 0 {
		fmt.Fprintf(&b, "  %s(none)%s\n", p.dim, p.reset)
		return b.String()
	}
	for _, rec := range recs {
		fmt.Fprintf(&b, "  %s  %s%8s%s  %s%-7s%s %s\n",
			rec.ModTime.Format("2006-01-02 15:04:05"),
			p.green, formatBackupSize(rec.Size), p.reset,
			p.cyan, rec.Kind, p.reset,
			rec.Path,
		)
	}
	return b.String()
}

// FormatStats renders lifetime statistics.
func FormatStats(stats StatsSnapshot) string {
	return fmt.Sprintf("Total backups: %d\nTotal size: %s\n", stats.TotalBackups, formatBackupSize(stats.TotalBytes))
}

func contractStatusPaths(report *StatusReport, homeDir string) {
	report.Global.ConfigFile.Path = contractHomeDir(report.Global.ConfigFile.Path, homeDir, '/')
	report.Global.ConfigDir.Path = contractHomeDir(report.Global.ConfigDir.Path, homeDir, '/')
	report.Global.BackupRoot.Path = contractHomeDir(report.Global.BackupRoot.Path, homeDir, '/')
	report.Global.LogDir.Path = contractHomeDir(report.Global.LogDir.Path, homeDir, '/')
	if report.Source != nil {
		report.Source.Path = contractHomeDir(report.Source.Path, homeDir, '/')
		report.Source.Backups.Latest = contractHomeDir(report.Source.Backups.Latest, homeDir, '/')
	}
}

func appendStatusLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %-18s %s\n", label, value)
}

func formatPathStatus(path StatusPath, p statusPalette) string {
	if path.Path == "" {
		return fmt.Sprintf("%s✗%s %s%s%s", p.red, p.reset, p.dim, statusNotSet, p.reset)
	}
	var status string
	if path.Exists {
		status = fmt.Sprintf("%s✓%s", p.green, p.reset)
	} else {
		status = fmt.Sprintf("%s✗%s %s(not found)%s", p.red, p.reset, p.dim, p.reset)
	}
	value := fmt.Sprintf("%s %s", path.Path, status)
	if path.Source != "" {
		value += fmt.Sprintf(" %s(%s)%s", p.dim, path.Source, p.reset)
	}
	return value
}

func formatRetention(policy RetentionPolicy, p statusPalette) string {
	if policy.Unlimited() {
		return fmt.Sprintf("%s–%s %s(disabled, keep all)%s", p.yellow, p.reset, p.dim, p.reset)
	}
	return fmt.Sprintf("keep last %d per file", policy.MaxGenerations)
}

func formatBoolStatus(value bool, p statusPalette) string {
	if value {
		return fmt.Sprintf("%s✓%s", p.green, p.reset)
	}
	return fmt.Sprintf("%s✗%s", p.red, p.reset)
}

func formatTextValue(value string, p statusPalette) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s–%s %s%s%s", p.yellow, p.reset, p.dim, statusNotSet, p.reset)
	}
	return value
}

func formatBackupTime(value time.Time, p statusPalette) string {
	if value.IsZero() {
		return fmt.Sprintf("%s✗%s %s(not found)%s", p.red, p.reset, p.dim, p.reset)
	}
	return value.Format("2006-01-02 15:04:05")
}

func formatBackupSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
