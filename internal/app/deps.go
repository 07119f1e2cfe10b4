package app

import (
	"log/slog"

	"github.com/arumata/nautback/internal/adapters/archive"
	"github.com/arumata/nautback/internal/adapters/config"
	"github.com/arumata/nautback/internal/adapters/diff"
	"github.com/arumata/nautback/internal/adapters/filesystem"
	"github.com/arumata/nautback/internal/adapters/lock"
	"github.com/arumata/nautback/internal/adapters/noop"
	"github.com/arumata/nautback/internal/adapters/notification"
	"github.com/arumata/nautback/internal/adapters/settings"
	"github.com/arumata/nautback/internal/usecase"
)

// NewDefaultDependencies creates dependencies with real adapters where available.
func NewDefaultDependencies(logger *slog.Logger) *usecase.Dependencies {
	if logger == nil {
		panic("default dependencies require logger")
	}
	settingsAdapter := settings.New(logger)

	return &usecase.Dependencies{
		FileSystem:   filesystem.New(logger),
		Archive:      archive.New(logger),
		Diff:         diff.New(logger),
		Config:       config.New(logger),
		Settings:     settingsAdapter,
		Stats:        settingsAdapter,
		Lock:         lock.New(logger),
		Notification: notification.New(logger),
	}
}

// ConfigureArchive applies the configured gzip level to the archive adapter.
// Levels outside 0..9 keep the default.
func ConfigureArchive(deps *usecase.Dependencies, cfg usecase.EngineConfig, logger *slog.Logger) {
	if deps == nil {
		return
	}
	level := cfg.CompressionLevel
	if level < 0 || level > 9 {
		logger.Warn("ignoring invalid compression level", "level", level)
		level = usecase.DefaultCompressionLevel
	}
	deps.Archive = archive.New(logger, archive.WithCompressionLevel(level))
}

// ConfigureNotifications swaps the notifier according to the loaded config.
// quiet or a disabled config selects the no-op notifier.
func ConfigureNotifications(deps *usecase.Dependencies, cfg usecase.NotificationsConfig, quiet bool, logger *slog.Logger) {
	if deps == nil {
		return
	}
	if quiet || !cfg.Enabled {
		deps.Notification = noop.NewNotificationAdapter()
		return
	}
	deps.Notification = notification.New(logger, notification.WithSound(cfg.Sound))
}
