package query

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type fakeReader struct {
	err   error
	items []map[string]interface{}
	finds []string
}

func (f *fakeReader) Find(ctx context.Context, loc models.StorageLocation, filter bson.M) ([]map[string]interface{}, error) {
	f.finds = append(f.finds, loc.Collection)
	return f.items, f.err
}

func row(platform, term, name string) map[string]interface{} {
	return map[string]interface{}{
		"platform":     platform,
		"search_term":  term,
		"product_name": name,
	}
}

func TestScanCacheFiltersByTermSubstring(t *testing.T) {
	rows := []map[string]interface{}{
		row("Zepto", "basmati rice", "Daawat"),
		row("Zepto", "milk", "Amul Taaza"),
		row("Zepto", "Basmati Rice Premium", "India Gate"),
	}

	got := scanCache(rows, models.PlatformZepto, "RICE", 100)
	assert.Len(t, got, 2)
	assert.Equal(t, "Daawat", got[0]["product_name"])
	assert.Equal(t, "India Gate", got[1]["product_name"])
}

func TestScanCachePlatformPrefixes(t *testing.T) {
	rows := []map[string]interface{}{
		row("blinkit", "milk", "a"),
		row("Blinkit Store", "milk", "b"),
		row("instamart", "milk", "c"),
		row("Zepto", "milk", "d"),
	}

	assert.Len(t, scanCache(rows, models.PlatformBlinkit, "milk", 100), 2)
	assert.Len(t, scanCache(rows, models.PlatformInstamart, "milk", 100), 1)

	// Zepto's cache file holds only its own rows, so nothing is filtered
	// out by platform.
	assert.Len(t, scanCache(rows, models.PlatformZepto, "milk", 100), 4)
}

func TestScanCacheHonorsLimit(t *testing.T) {
	var rows []map[string]interface{}
	for i := 0; i < 150; i++ {
		rows = append(rows, row("Zepto", "milk", "x"))
	}

	assert.Len(t, scanCache(rows, models.PlatformZepto, "milk", 100), 100)
}

func TestResultsFallsBackToFileCache(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "scraped_data.json")
	require.NoError(t, os.WriteFile(cachePath, []byte(`[
		{"_id": 7, "platform": "Zepto", "search_term": "milk", "product_name": "Amul Taaza"},
		{"_id": "abc", "platform": "Zepto", "search_term": "milk powder", "product_name": "Nestle"},
		{"_id": "def", "platform": "Zepto", "search_term": "rice", "product_name": "Daawat"}
	]`), 0o644))

	cfg := &config.Config{
		Zepto: config.PlatformConfig{
			MongoURI: "mongodb://localhost:27017", Database: "snapit_zepto",
			OutputFile: cachePath, LastTermFile: filepath.Join(dir, "last_search_term.txt"),
		},
		Blinkit:   config.PlatformConfig{OutputFile: filepath.Join(dir, "b.json"), LastTermFile: filepath.Join(dir, "b.txt")},
		Instamart: config.PlatformConfig{OutputFile: filepath.Join(dir, "i.json"), LastTermFile: filepath.Join(dir, "i.txt")},
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// The store tier errors; the cache must still answer, with string ids.
	reader := &fakeReader{err: errors.New("connection refused")}
	svc := NewService(reader, cfg, log)

	items := svc.Results(context.Background(), models.PlatformZepto, "milk")
	require.Len(t, items, 2)
	assert.Equal(t, "7", items[0]["_id"])
	assert.Equal(t, "abc", items[1]["_id"])
	assert.Equal(t, []string{"milk"}, reader.finds)
}

func TestLatestWithoutRecordedTermSkipsStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Zepto:     config.PlatformConfig{OutputFile: filepath.Join(dir, "z.json"), LastTermFile: filepath.Join(dir, "z.txt")},
		Blinkit:   config.PlatformConfig{OutputFile: filepath.Join(dir, "b.json"), LastTermFile: filepath.Join(dir, "b.txt")},
		Instamart: config.PlatformConfig{OutputFile: filepath.Join(dir, "i.json"), LastTermFile: filepath.Join(dir, "i.txt")},
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	reader := &fakeReader{}
	svc := NewService(reader, cfg, log)

	term, items := svc.Latest(context.Background(), models.PlatformZepto)
	assert.Equal(t, "", term)
	assert.Empty(t, items)
	assert.Empty(t, reader.finds)
}

func TestScanCacheMissingFieldsAreSkippedSafely(t *testing.T) {
	rows := []map[string]interface{}{
		{"product_name": "no term or platform"},
		{"search_term": 42, "platform": "Zepto"},
		row("Zepto", "milk", "ok"),
	}

	// Rows without a usable search_term only match the empty needle; a
	// real term never panics on them.
	got := scanCache(rows, models.PlatformZepto, "milk", 100)
	assert.Len(t, got, 1)
	assert.Equal(t, "ok", got[0]["product_name"])
}
