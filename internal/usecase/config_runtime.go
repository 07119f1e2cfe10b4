package usecase

import (
	"strings"
)

// RuntimeConfigFromFile converts TOML config into the runtime config held by the Engine.
// Backup root and retention come from the key files and are filled in by NewEngine.
func RuntimeConfigFromFile(cfg ConfigFile, homeDir, configDir string) (*Config, error) {
	cleanHome := strings.TrimSpace(homeDir)
	if cleanHome == "" {
		return nil, InvalidArgument.New("home directory is empty")
	}
	cleanConfigDir := strings.TrimSpace(configDir)
	if cleanConfigDir == "" {
		return nil, InvalidArgument.New("config directory is empty")
	}

	thresholdMB := cfg.Engine.AsyncThresholdMB
	if thresholdMB <= 0 {
		thresholdMB = defaultAsyncThresholdMB
	}

	roots := make([]string, 0, len(cfg.Engine.SearchRoots))
	for _, r := range cfg.Engine.SearchRoots {
		if r = expandHomeDir(r, cleanHome); r != "" {
			roots = append(roots, r)
		}
	}

	return &Config{
		HomeDir:        cleanHome,
		ConfigDir:      expandHomeDir(cleanConfigDir, cleanHome),
		AsyncThreshold: int64(thresholdMB) * 1_000_000,
		SearchRoots:    roots,
		Notifications:  cfg.Notifications,
	}, nil
}
