package usecase

// ConfigFile describes TOML configuration structure.
type ConfigFile struct {
	Engine        EngineConfig        `toml:"engine"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
}

// EngineConfig holds scheduling, discovery and archive settings.
// CompressionLevel is the gzip level for folder archives, 1 (fastest) to 9
// (smallest); 0 stores without compression.
type EngineConfig struct {
	AsyncThresholdMB int      `toml:"async_threshold_mb"`
	SearchRoots      []string `toml:"search_roots"`
	CompressionLevel int      `toml:"compression_level"`
}

// NotificationsConfig holds notification settings.
type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Sound   string `toml:"sound"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Dir        string `toml:"dir"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// ConfigDirName is the per-user directory holding every settings file.
const ConfigDirName = "nautilus-backup"

// SuggestedBackupRoot is used when config.txt is missing or blank.
const SuggestedBackupRoot = "~/Backups"

const defaultAsyncThresholdMB = 10

// DefaultCompressionLevel matches gzip's own default.
const DefaultCompressionLevel = 6

// Key file names inside the config directory.
const (
	backupRootFileName = "config.txt"
	retentionFileName  = "cleanup.txt"
	statsFileName      = "stats.txt"
	settingsLockName   = ".settings.lock"
	statsLockName      = ".stats.lock"
	// ConfigFileName is the ambient TOML configuration.
	ConfigFileName = "config.toml"
)

// DefaultConfigFile returns default TOML configuration.
func DefaultConfigFile() ConfigFile {
	return ConfigFile{
		Engine: EngineConfig{
			AsyncThresholdMB: defaultAsyncThresholdMB,
			SearchRoots:      []string{},
			CompressionLevel: DefaultCompressionLevel,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Sound:   "",
		},
		Logging: LoggingConfig{
			Dir:        "~/.local/state/nautback/logs",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}
