package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arumata/nautback/internal/app"
	"github.com/arumata/nautback/internal/usecase"
)

// session is one engine instance for the duration of a command.
type session struct {
	engine   *usecase.Engine
	logger   *slog.Logger
	homeDir  string
	useColor bool
	close    func()
}

// configDirPath returns $XDG_CONFIG_HOME/nautilus-backup, falling back to
// ~/.config when the variable is unset or relative.
func configDirPath(homeDir string) string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" || !filepath.IsAbs(base) {
		base = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(base, usecase.ConfigDirName)
}

func resolveHomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", usecase.InvalidArgument.Wrap(err, "resolve home dir")
	}
	return homeDir, nil
}

func openSession(ctx context.Context, opts *rootOptions, depsFactory depsFactoryFunc) (*session, error) {
	logger := setupLogger(opts.verbose)
	homeDir, err := resolveHomeDir()
	if err != nil {
		return nil, err
	}
	configDir := configDirPath(homeDir)

	bootstrap := depsFactory(logger)
	if bootstrap == nil || bootstrap.Config == nil {
		return nil, usecase.InvalidArgument.New("config adapter not available")
	}
	configFile, err := bootstrap.Config.Load(ctx, filepath.Join(configDir, usecase.ConfigFileName))
	if err != nil {
		return nil, usecase.IOError.Wrap(err, "load config")
	}
	cfg, err := usecase.RuntimeConfigFromFile(configFile, homeDir, configDir)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = opts.verbose
	if opts.quiet {
		cfg.Notifications.Enabled = false
	}

	logger, closeLog := withFileLogging(logger, configFile.Logging, homeDir, opts.verbose)
	deps := depsFactory(logger)
	app.ConfigureArchive(deps, configFile.Engine, logger)
	app.ConfigureNotifications(deps, configFile.Notifications, opts.quiet, logger)

	engine, err := usecase.NewEngine(ctx, cfg, deps, logger)
	if err != nil {
		closeLog()
		return nil, err
	}
	logger.Debug("Starting nautback", "config_dir", configDir)
	return &session{
		engine:   engine,
		logger:   logger,
		homeDir:  homeDir,
		useColor: shouldUseColor(os.Stdout),
		close: func() {
			engine.Close()
			closeLog()
		},
	}, nil
}

// withSession opens a session, runs fn and records the exit code.
func withSession(
	ctx context.Context,
	opts *rootOptions,
	depsFactory depsFactoryFunc,
	exitCode *int,
	fn func(*session) error,
) {
	s, err := openSession(ctx, opts, depsFactory)
	if err != nil {
		handleCmdError(exitCode, err)
		return
	}
	defer s.close()
	handleCmdError(exitCode, fn(s))
}
