package usecase

import (
	"context"
	"strings"
)

// Settings returns the current backup root and retention policy.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Settings{BackupRoot: e.cfg.BackupRoot, Retention: e.cfg.Retention}
}

// loadSettings fills the backup root and retention from the key files and
// creates the backup root.
func (e *Engine) loadSettings(ctx context.Context) {
	fs := e.deps.FileSystem
	root, err := e.deps.Settings.LoadBackupRoot(ctx, e.settingsPath(backupRootFileName))
	if err != nil {
		e.bc.warnf("load backup root: %v", err)
	}
	if strings.TrimSpace(root) == "" {
		root = SuggestedBackupRoot
	}
	root = normalizePath(fs, root, e.cfg.HomeDir)

	policy, err := e.deps.Settings.LoadRetention(ctx, e.settingsPath(retentionFileName))
	if err != nil {
		e.bc.warnf("load retention: %v", err)
		policy = RetentionPolicy{}
	}

	e.mu.Lock()
	e.cfg.BackupRoot = root
	e.cfg.Retention = policy
	e.mu.Unlock()

	if err := fs.CreateDir(ctx, root, 0o755); err != nil {
		e.bc.warnf("create backup root '%s': %v", root, err)
	}
}

// SetRetention stores a new cap. Zero means unlimited.
func (e *Engine) SetRetention(ctx context.Context, maxGenerations int) error {
	if maxGenerations < 0 {
		return InvalidArgument.New("retention must be zero (unlimited) or positive, got %d", maxGenerations)
	}
	policy := RetentionPolicy{MaxGenerations: maxGenerations}
	err := e.withSettingsLock(ctx, func() error {
		path := e.settingsPath(retentionFileName)
		if err := e.deps.Settings.SaveRetention(ctx, path, policy); err != nil {
			return classifyFSError(e.deps.FileSystem, err, "save retention", path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg.Retention = policy
	e.mu.Unlock()

	state := "Disabled"
	if !policy.Unlimited() {
		state = "Keep last " + policy.String()
	}
	e.bc.logf("[settings] retention=%s", policy)
	e.notify(ctx, Notification{Title: "Settings Saved", Message: "Auto-cleanup: " + state})
	return nil
}

// SetBackupRoot makes path absolute, creates it and stores it.
func (e *Engine) SetBackupRoot(ctx context.Context, path string) error {
	fs := e.deps.FileSystem
	clean := normalizePath(fs, path, e.cfg.HomeDir)
	if clean == "" {
		return InvalidArgument.New("backup root is empty")
	}
	abs, err := fs.Abs(ctx, clean)
	if err != nil {
		return classifyFSError(fs, err, "resolve backup root", clean)
	}
	if err := fs.CreateDir(ctx, abs, 0o755); err != nil {
		return classifyFSError(fs, err, "create backup root", abs)
	}
	info, err := fs.Stat(ctx, abs)
	if err != nil {
		return classifyFSError(fs, err, "stat backup root", abs)
	}
	if !info.IsDir() {
		return InvalidArgument.New("backup root is not a directory: %s", abs).WithProperty(pathProperty, abs)
	}

	err = e.withSettingsLock(ctx, func() error {
		keyPath := e.settingsPath(backupRootFileName)
		if err := e.deps.Settings.SaveBackupRoot(ctx, keyPath, abs); err != nil {
			return classifyFSError(fs, err, "save backup root", keyPath)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg.BackupRoot = abs
	e.mu.Unlock()

	e.bc.logf("[settings] backup root=%s", abs)
	e.notify(ctx, Notification{Title: "Settings Saved", Message: "Backup folder:\n" + abs})
	return nil
}

func (e *Engine) withSettingsLock(ctx context.Context, fn func() error) error {
	fs := e.deps.FileSystem
	if err := fs.CreateDir(ctx, e.cfg.ConfigDir, 0o755); err != nil {
		return classifyFSError(fs, err, "create config dir", e.cfg.ConfigDir)
	}
	handle, err := e.deps.Lock.Lock(ctx, e.settingsPath(settingsLockName))
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Unlock(); err != nil {
			e.bc.warnf("unlock settings: %v", err)
		}
	}()
	return fn()
}

func (e *Engine) settingsPath(name string) string {
	return e.deps.FileSystem.Join(e.cfg.ConfigDir, name)
}
