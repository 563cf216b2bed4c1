// Package query serves read requests over previously scraped data, falling
// back through storage tiers: the primary collection, a platform-specific
// alternate collection, and finally the local file cache.
package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/snapit/price-scraper/internal/store"
	"go.mongodb.org/mongo-driver/bson"
)

const resultLimit = 100

// Reader is the document-store surface the service reads through.
type Reader interface {
	Find(ctx context.Context, loc models.StorageLocation, filter bson.M) ([]map[string]interface{}, error)
}

// Cache is the file-backed mirror consulted when the store has nothing.
type Cache interface {
	Load() []map[string]interface{}
}

type Service struct {
	store  Reader
	router store.Router
	caches map[models.Platform]Cache
	terms  map[models.Platform]string
	logger *slog.Logger
}

func NewService(reader Reader, cfg *config.Config, logger *slog.Logger) *Service {
	caches := make(map[models.Platform]Cache)
	terms := make(map[models.Platform]string)
	for _, p := range []models.Platform{models.PlatformZepto, models.PlatformBlinkit, models.PlatformInstamart} {
		pc := cfg.Platform(p)
		caches[p] = store.NewFileCache(pc.OutputFile, logger)
		terms[p] = pc.LastTermFile
	}
	return &Service{
		store:  reader,
		router: store.NewRouter(cfg),
		caches: caches,
		terms:  terms,
		logger: logger.With("component", "query"),
	}
}

// Results looks up the term across the platform's tiers. A store tier that
// errors counts as empty so the file cache can still answer offline.
func (s *Service) Results(ctx context.Context, p models.Platform, term string) []map[string]interface{} {
	filter := store.TermFilter(term)

	loc := s.router.ReadPrimary(p, term)
	items, err := s.store.Find(ctx, loc, filter)
	if err != nil {
		s.logger.Warn("primary tier unavailable", "platform", p, "collection", loc.Collection, "error", err)
	}
	if len(items) > 0 {
		return items
	}

	if alt, ok := s.router.ReadAlternate(p, term); ok {
		items, err = s.store.Find(ctx, alt, filter)
		if err != nil {
			s.logger.Warn("alternate tier unavailable", "platform", p, "collection", alt.Collection, "error", err)
		}
		if len(items) > 0 {
			return items
		}
	}

	return scanCache(s.caches[p].Load(), p, term, resultLimit)
}

// Latest serves the platform's most recently scraped term. Unlike Results
// the store reads are unfiltered: the last-term collection holds only that
// term's rows, and the final fallback is the whole cache file.
func (s *Service) Latest(ctx context.Context, p models.Platform) (string, []map[string]interface{}) {
	term := store.ReadLastTerm(s.terms[p])
	if term == "" {
		// Nothing recorded yet: there is no collection to read, only the
		// cache file.
		return "", s.caches[p].Load()
	}

	loc := s.router.ReadPrimary(p, term)
	items, err := s.store.Find(ctx, loc, nil)
	if err != nil {
		s.logger.Warn("primary tier unavailable", "platform", p, "collection", loc.Collection, "error", err)
	}
	if len(items) > 0 {
		return term, items
	}

	if alt, ok := s.router.ReadAlternate(p, term); ok {
		items, err = s.store.Find(ctx, alt, nil)
		if err != nil {
			s.logger.Warn("alternate tier unavailable", "platform", p, "collection", alt.Collection, "error", err)
		}
		if len(items) > 0 {
			return term, items
		}
	}

	return term, s.caches[p].Load()
}

// scanCache filters cached rows by case-insensitive term substring and by
// platform, newest rows last in file order kept as-is.
func scanCache(rows []map[string]interface{}, p models.Platform, term string, limit int) []map[string]interface{} {
	needle := strings.ToLower(term)
	var out []map[string]interface{}
	for _, row := range rows {
		if !platformMatches(row, p) {
			continue
		}
		val, _ := row["search_term"].(string)
		if !strings.Contains(strings.ToLower(val), needle) {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// platformMatches tolerates historical platform labels: any value starting
// with "blink" or "insta" counts for its platform. Zepto's cache file only
// ever holds Zepto rows, so everything passes.
func platformMatches(row map[string]interface{}, p models.Platform) bool {
	val, _ := row["platform"].(string)
	low := strings.ToLower(val)
	switch p {
	case models.PlatformBlinkit:
		return strings.HasPrefix(low, "blink")
	case models.PlatformInstamart:
		return strings.HasPrefix(low, "insta")
	default:
		return true
	}
}
