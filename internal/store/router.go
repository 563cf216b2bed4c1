package store

import (
	"strings"

	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/models"
)

// defaultCollection backs an empty term, matching the store's default
// prices collection.
const defaultCollection = "prices"

// Router maps (platform, term) to a storage location. Each platform may
// point at an independent connection target and database.
type Router struct {
	cfg *config.Config
}

func NewRouter(cfg *config.Config) Router {
	return Router{cfg: cfg}
}

// NormalizeCollection turns a user-provided term into a safe collection
// name: trimmed, lower-cased, spaces to underscores.
func NormalizeCollection(term string) string {
	cleaned := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(term)), " ", "_")
	if cleaned == "" {
		return defaultCollection
	}
	return cleaned
}

// Write is the location the platform's scraper writes to. Zepto uses the
// bare normalized term; Blinkit and Instamart prefix it with the platform
// name.
func (r Router) Write(p models.Platform, term string) models.StorageLocation {
	name := NormalizeCollection(term)
	if prefix := p.Prefix(); prefix != "" && term != "" {
		name = prefix + "_" + NormalizeCollection(term)
	}
	return r.location(p, name)
}

// ReadPrimary is the first tier of the read cascade. Instamart reads the
// prefixed collection its writer populates; Zepto and Blinkit start from
// the bare term.
func (r Router) ReadPrimary(p models.Platform, term string) models.StorageLocation {
	if p == models.PlatformInstamart && term != "" {
		return r.location(p, "instamart_"+NormalizeCollection(term))
	}
	return r.location(p, NormalizeCollection(term))
}

// ReadAlternate is the second tier: only Blinkit has one, under its writer's
// prefixed naming scheme.
func (r Router) ReadAlternate(p models.Platform, term string) (models.StorageLocation, bool) {
	if p != models.PlatformBlinkit || term == "" {
		return models.StorageLocation{}, false
	}
	return r.location(p, "blinkit_"+NormalizeCollection(term)), true
}

func (r Router) location(p models.Platform, collection string) models.StorageLocation {
	pc := r.cfg.Platform(p)
	return models.StorageLocation{
		URI:        pc.MongoURI,
		Database:   pc.Database,
		Collection: collection,
	}
}
