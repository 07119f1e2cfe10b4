package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"
	"github.com/google/renameio"

	"github.com/arumata/nautback/internal/usecase"
)

type statsRecord struct {
	TotalBackups int64  `json:"total_backups"`
	TotalSize    int64  `json:"total_size"`
	TotalBytes   *int64 `json:"total_bytes,omitempty"`
}

// Load reads the stats record. A missing or empty file is zero.
func (a *Adapter) Load(ctx context.Context, path string) (usecase.StatsSnapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is controlled by usecase
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return usecase.StatsSnapshot{}, nil
		}
		return usecase.StatsSnapshot{}, err
	}
	if len(data) == 0 {
		return usecase.StatsSnapshot{}, nil
	}

	var rec statsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return usecase.StatsSnapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	size := rec.TotalSize
	if size == 0 && rec.TotalBytes != nil {
		size = *rec.TotalBytes
	}
	if rec.TotalBackups < 0 || size < 0 {
		return usecase.StatsSnapshot{}, fmt.Errorf("parse %s: negative counters", path)
	}
	return usecase.StatsSnapshot{TotalBackups: rec.TotalBackups, TotalBytes: size}, nil
}

// Save atomically replaces the stats record.
func (a *Adapter) Save(ctx context.Context, path string, stats usecase.StatsSnapshot) error {
	data, err := json.Marshal(statsRecord{TotalBackups: stats.TotalBackups, TotalSize: stats.TotalBytes})
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, append(data, '\n'), keyFileMode); err != nil {
		return err
	}
	a.logger.Debug("stats saved", "path", path, "backups", stats.TotalBackups, "bytes", stats.TotalBytes)
	return nil
}
