package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/snapit/price-scraper/internal/models"
)

// FileCache mirrors a platform's scraped records into a local JSON file.
// The file is one JSON array, rewritten wholesale on every run, growing
// monotonically: prior contents are read, the new batch is concatenated,
// and the whole file is written back.
type FileCache struct {
	path   string
	logger *slog.Logger
}

func NewFileCache(path string, logger *slog.Logger) *FileCache {
	return &FileCache{path: path, logger: logger.With("component", "filecache")}
}

func (c *FileCache) Path() string {
	return c.path
}

// Load reads the cached rows. A missing, empty, or corrupt file reads as
// "no data".
func (c *FileCache) Load() []map[string]interface{} {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		c.logger.Warn("cache file unreadable, treating as empty", "path", c.path, "error", err)
		return nil
	}
	for _, row := range rows {
		NormalizeID(row)
	}
	return rows
}

// Append concatenates the run's records onto the existing contents and
// rewrites the file in full.
func (c *FileCache) Append(records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	existing := c.Load()
	combined := make([]interface{}, 0, len(existing)+len(records))
	for _, row := range existing {
		combined = append(combined, row)
	}
	for _, rec := range records {
		combined = append(combined, rec)
	}

	data, err := json.MarshalIndent(combined, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to rewrite cache %s: %w", c.path, err)
	}

	c.logger.Info("data appended to cache", "path", c.path, "total", len(combined))
	return nil
}
