package settings

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio"

	"github.com/arumata/nautback/internal/usecase"
)

const keyFileMode = 0o644

// Adapter implements usecase.SettingsPort and usecase.StatsPort over the
// single-value files in the config directory.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new settings adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("settings adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// readKey returns the first line of path, trimmed. A missing file is "".
func readKey(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is controlled by usecase
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

func writeKey(path, value string) error {
	return renameio.WriteFile(path, []byte(value+"\n"), keyFileMode)
}

// LoadBackupRoot reads the saved backup root.
func (a *Adapter) LoadBackupRoot(ctx context.Context, path string) (string, error) {
	return readKey(path)
}

// SaveBackupRoot stores root as the only line of path.
func (a *Adapter) SaveBackupRoot(ctx context.Context, path, root string) error {
	root = strings.TrimSpace(root)
	if root == "" {
		return usecase.InvalidArgument.New("backup root is empty")
	}
	if err := writeKey(path, root); err != nil {
		return err
	}
	a.logger.Debug("backup root saved", "path", path, "root", root)
	return nil
}

// LoadRetention reads the retention cap. Missing, blank, zero and
// unparsable values all mean unlimited.
func (a *Adapter) LoadRetention(ctx context.Context, path string) (usecase.RetentionPolicy, error) {
	value, err := readKey(path)
	if err != nil || value == "" {
		return usecase.RetentionPolicy{}, err
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		a.logger.Warn("ignoring invalid retention value", "path", path, "value", value)
		return usecase.RetentionPolicy{}, nil
	}
	return usecase.RetentionPolicy{MaxGenerations: n}, nil
}

// SaveRetention stores the cap. An unlimited policy removes the file.
func (a *Adapter) SaveRetention(ctx context.Context, path string, policy usecase.RetentionPolicy) error {
	if policy.Unlimited() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		a.logger.Debug("retention cleared", "path", path)
		return nil
	}
	if err := writeKey(path, strconv.Itoa(policy.MaxGenerations)); err != nil {
		return err
	}
	a.logger.Debug("retention saved", "path", path, "max", policy.MaxGenerations)
	return nil
}
