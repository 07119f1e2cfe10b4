package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio"

	"github.com/arumata/nautback/internal/usecase"
)

// Adapter implements ConfigPort using TOML files on disk.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new config adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("config adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// Load reads config from path or returns defaults when file is missing.
// Keys missing from the file keep their default values.
func (a *Adapter) Load(ctx context.Context, path string) (usecase.ConfigFile, error) {
	_ = ctx
	if strings.TrimSpace(path) == "" {
		return usecase.ConfigFile{}, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is controlled by usecase
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return usecase.DefaultConfigFile(), nil
		}
		return usecase.ConfigFile{}, err
	}

	cfg := usecase.DefaultConfigFile()
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return usecase.ConfigFile{}, fmt.Errorf("parse config toml: %w", err)
	}
	for _, key := range meta.Undecoded() {
		a.logger.Warn("unknown config key", "key", key.String(), "path", path)
	}

	return cfg, nil
}

// Save atomically writes config to path in TOML format with inline
// documentation.
func (a *Adapter) Save(ctx context.Context, path string, cfg usecase.ConfigFile) error {
	_ = ctx
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is empty")
	}

	content := renderCommentedTOML(cfg)

	// #nosec G306 - config is not secret.
	return renameio.WriteFile(path, []byte(content), 0o644)
}

//nolint:lll // template readability is more important than line length.
func renderCommentedTOML(cfg usecase.ConfigFile) string {
	return fmt.Sprintf(`# Nautilus Backup Configuration
#
# The backup folder and auto-cleanup limit live in config.txt and
# cleanup.txt next to this file. Change them with:
#   nautback settings root <path>
#   nautback settings retention <n>

# ── Engine ───────────────────────────────────────────────────────
[engine]

# Files larger than this (MB) and every folder are backed up in the
# background so the file manager stays responsive.
async_threshold_mb = %[1]d

# Extra folders searched by "history" and "status" besides the source
# folder and the backup folder. Supports ~, $HOME, ${HOME}.
search_roots = %[2]s

# gzip level for folder archives: 1 (fastest) to 9 (smallest), 0 stores
# without compression.
compression_level = %[10]d

# ── Desktop Notifications ────────────────────────────────────────
[notifications]

# Show a notification when a backup or restore starts, ends or fails.
enabled = %[3]t

# Notification sound ("" = system default).
sound = %[4]q

# ── Logging ──────────────────────────────────────────────────────
[logging]

# Log directory. Supports ~, $HOME, ${HOME}. Created automatically.
dir = %[5]q

# Minimum log level: debug, info, warn, error.
level = %[6]q

# Rotate the log file after this many megabytes.
max_size_mb = %[7]d

# Number of rotated log files to keep.
max_backups = %[8]d

# Remove rotated log files older than this many days.
max_age_days = %[9]d
`,
		cfg.Engine.AsyncThresholdMB,
		renderStringArray(cfg.Engine.SearchRoots),
		cfg.Notifications.Enabled,
		cfg.Notifications.Sound,
		cfg.Logging.Dir,
		cfg.Logging.Level,
		cfg.Logging.MaxSizeMB,
		cfg.Logging.MaxBackups,
		cfg.Logging.MaxAgeDays,
		cfg.Engine.CompressionLevel,
	)
}

func renderStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, fmt.Sprintf("%q", v))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
