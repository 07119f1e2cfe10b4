package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const initBackupTimeFormat = "20060102-150405"

//nolint:gochecknoglobals // overridden in tests for deterministic backups.
var initNow = time.Now

// InitOptions describes init behavior.
type InitOptions struct {
	// BackupRoot, when set, is written to config.txt.
	BackupRoot string
	Force      bool
	DryRun     bool
	HomeDir    string
	ConfigDir  string
}

// Init writes the default config.toml and creates the backup root and log
// directory.
func Init(ctx context.Context, opts InitOptions, deps *Dependencies, logger *slog.Logger) error {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return interruptedError(ctx)
	}
	if err := validateInitDependencies(deps); err != nil {
		return err
	}
	homeDir, configDir, err := normalizeInitInputs(opts)
	if err != nil {
		return err
	}

	paths := buildInitPaths(deps.FileSystem, configDir)
	cfg := DefaultConfigFile()
	if err := ensureConfig(ctx, opts, deps, paths, cfg); err != nil {
		return err
	}

	root := SuggestedBackupRoot
	if strings.TrimSpace(opts.BackupRoot) != "" {
		root = opts.BackupRoot
	} else if saved, err := deps.Settings.LoadBackupRoot(ctx, paths.backupRootPath); err == nil && saved != "" {
		root = saved
	}
	root = normalizePath(deps.FileSystem, root, homeDir)
	if !opts.DryRun && strings.TrimSpace(opts.BackupRoot) != "" {
		abs, err := deps.FileSystem.Abs(ctx, root)
		if err != nil {
			return classifyFSError(deps.FileSystem, err, "resolve backup root", root)
		}
		root = abs
		if err := deps.Settings.SaveBackupRoot(ctx, paths.backupRootPath, root); err != nil {
			return classifyFSError(deps.FileSystem, err, "save backup root", paths.backupRootPath)
		}
	}

	if err := ensureInitDirs(ctx, deps, homeDir, root, cfg, opts.DryRun); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Init completed", "config", paths.configPath, "backup_root", root)
	return nil
}

type initPaths struct {
	configDir      string
	configPath     string
	backupRootPath string
}

func validateInitDependencies(deps *Dependencies) error {
	if deps == nil {
		return InvalidArgument.New("dependencies are required")
	}
	if deps.FileSystem == nil {
		return InvalidArgument.New("filesystem adapter not available")
	}
	if deps.Config == nil {
		return InvalidArgument.New("config adapter not available")
	}
	if deps.Settings == nil {
		return InvalidArgument.New("settings adapter not available")
	}
	return nil
}

func normalizeInitInputs(opts InitOptions) (string, string, error) {
	homeDir := strings.TrimSpace(opts.HomeDir)
	if homeDir == "" {
		return "", "", InvalidArgument.New("home directory is empty")
	}
	configDir := strings.TrimSpace(opts.ConfigDir)
	if configDir == "" {
		return "", "", InvalidArgument.New("config directory is empty")
	}
	if opts.BackupRoot != "" && strings.TrimSpace(opts.BackupRoot) == "" {
		return "", "", InvalidArgument.New("backup root is empty")
	}
	return homeDir, expandHomeDir(configDir, homeDir), nil
}

func buildInitPaths(fs FileSystemPort, configDir string) initPaths {
	return initPaths{
		configDir:      configDir,
		configPath:     fs.Join(configDir, ConfigFileName),
		backupRootPath: fs.Join(configDir, backupRootFileName),
	}
}

func ensureConfig(ctx context.Context, opts InitOptions, deps *Dependencies, paths initPaths, cfg ConfigFile) error {
	fs := deps.FileSystem
	exists, err := pathExists(ctx, fs, paths.configPath)
	if err != nil {
		return classifyFSError(fs, err, "check config path", paths.configPath)
	}
	if !exists {
		if opts.DryRun {
			return nil
		}
		return writeConfig(ctx, deps, paths, cfg)
	}
	info, err := fs.Stat(ctx, paths.configPath)
	if err != nil {
		return classifyFSError(fs, err, "stat config", paths.configPath)
	}
	if info.IsDir() {
		return InvalidArgument.New("config path is a directory: %s", paths.configPath)
	}
	if !opts.Force {
		return DestinationExists.New("config already exists at %s (use --force)", paths.configPath).
			WithProperty(pathProperty, paths.configPath)
	}
	if opts.DryRun {
		return nil
	}
	if err := backupConfig(ctx, fs, paths.configPath); err != nil {
		return err
	}
	return writeConfig(ctx, deps, paths, cfg)
}

func backupConfig(ctx context.Context, fs FileSystemPort, configPath string) error {
	backupPath := configPath + ".bak." + initNow().Format(initBackupTimeFormat)
	if err := fs.Move(ctx, configPath, backupPath); err != nil {
		return classifyFSError(fs, err, "backup config", configPath)
	}
	return nil
}

func writeConfig(ctx context.Context, deps *Dependencies, paths initPaths, cfg ConfigFile) error {
	if err := deps.FileSystem.CreateDir(ctx, paths.configDir, 0o755); err != nil {
		return classifyFSError(deps.FileSystem, err, "create config dir", paths.configDir)
	}
	if err := deps.Config.Save(ctx, paths.configPath, cfg); err != nil {
		return classifyFSError(deps.FileSystem, err, "save config", paths.configPath)
	}
	return nil
}

func ensureInitDirs(ctx context.Context, deps *Dependencies, homeDir, root string, cfg ConfigFile, dryRun bool) error {
	if dryRun {
		return nil
	}
	if root != "" {
		if err := deps.FileSystem.CreateDir(ctx, root, 0o755); err != nil {
			return classifyFSError(deps.FileSystem, err, "create backup root", root)
		}
	}
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		expanded := normalizePath(deps.FileSystem, dir, homeDir)
		if err := deps.FileSystem.CreateDir(ctx, expanded, 0o755); err != nil {
			return classifyFSError(deps.FileSystem, err, "create log dir", expanded)
		}
	}
	return nil
}
