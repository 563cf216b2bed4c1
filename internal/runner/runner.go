// Package runner orchestrates one scrape run: session setup, the per-term
// attempt loop with recovery, extraction, and persistence.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapit/price-scraper/internal/adapter"
	"github.com/snapit/price-scraper/internal/extractor"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/snapit/price-scraper/internal/store"
)

const (
	maxAttempts  = 2
	recoverPause = 3 * time.Second
)

// Session is the slice of the browser session the runner drives directly.
type Session interface {
	Reload() error
	Screenshot(path string) error
	Close() error
}

// Persister writes records to the document store.
type Persister interface {
	Write(ctx context.Context, loc models.StorageLocation, records []models.Record) (int, error)
}

// Mirror appends the run's records to the local file cache.
type Mirror interface {
	Append(records []models.Record) error
}

// Factory builds a live session and the adapter driving it. It is called
// once per run, and only when there is at least one term to scrape.
type Factory func() (Session, adapter.Adapter, error)

type Runner struct {
	platform models.Platform
	factory  Factory
	router   store.Router
	store    Persister
	mirror   Mirror
	extract  *extractor.Extractor
	logger   *slog.Logger
}

func New(platform models.Platform, factory Factory, router store.Router, persister Persister, mirror Mirror, logger *slog.Logger) *Runner {
	return &Runner{
		platform: platform,
		factory:  factory,
		router:   router,
		store:    persister,
		mirror:   mirror,
		extract:  extractor.ForPlatform(platform),
		logger:   logger.With("component", "runner", "platform", platform),
	}
}

// Run scrapes every term in order. Store write failures are logged and do
// not stop the run; the file cache is flushed once, after the session is
// torn down.
func (r *Runner) Run(ctx context.Context, terms []string) error {
	if len(terms) == 0 {
		r.logger.Info("no search terms provided, nothing to do")
		return nil
	}

	logger := r.logger.With("run_id", uuid.New().String())
	logger.Info("starting scrape run", "terms", len(terms))

	session, site, err := r.factory()
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}

	var collected []models.Record
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
		if err := r.mirror.Append(collected); err != nil {
			logger.Warn("failed to update file cache", "error", err)
		}
	}()

	if err := site.Home(); err != nil {
		r.snapshot(session, logger, "error", "home", 1)
		return fmt.Errorf("failed to open %s: %w", r.platform, err)
	}

	for _, term := range terms {
		records := r.scrapeTerm(session, site, logger, term)
		if len(records) == 0 {
			continue
		}
		collected = append(collected, records...)

		loc := r.router.Write(r.platform, term)
		count, err := r.store.Write(ctx, loc, records)
		if err != nil {
			logger.Warn("failed to store records", "term", term, "collection", loc.Collection, "error", err)
			continue
		}
		logger.Info("records stored", "term", term, "collection", loc.Collection, "count", count)
	}

	return nil
}

// scrapeTerm runs the attempt loop for one term. Between attempts the page
// is reloaded and the delivery location re-established.
func (r *Runner) scrapeTerm(session Session, site adapter.Adapter, logger *slog.Logger, term string) []models.Record {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		blocks, err := site.Open(term)
		if err == nil {
			records := r.toRecords(blocks, term)
			logger.Info("scraped term", "term", term, "attempt", attempt, "blocks", len(blocks), "records", len(records))
			return records
		}

		kind := "error"
		if errors.Is(err, adapter.ErrNoResults) {
			kind = "timeout"
		}
		logger.Warn("attempt failed", "term", term, "attempt", attempt, "kind", kind, "error", err)
		r.snapshot(session, logger, kind, term, attempt)

		if attempt == maxAttempts {
			break
		}
		if err := session.Reload(); err != nil {
			logger.Warn("failed to reload page", "term", term, "error", err)
		}
		if err := site.HandleLocation(); err != nil {
			logger.Warn("failed to re-establish location", "term", term, "error", err)
		}
		settle(recoverPause)
	}

	logger.Error("all attempts exhausted", "term", term)
	return nil
}

func (r *Runner) toRecords(blocks []adapter.Block, term string) []models.Record {
	var records []models.Record
	for _, block := range blocks {
		if rec, ok := r.extract.Extract(block, term); ok {
			records = append(records, rec)
		}
	}
	return records
}

// snapshot saves a diagnostic screenshot. Best-effort.
func (r *Runner) snapshot(session Session, logger *slog.Logger, kind, term string, attempt int) {
	path := fmt.Sprintf("%s_%s_%s_a%d.png", r.platform, kind, sanitize(term), attempt)
	if err := session.Screenshot(path); err != nil {
		logger.Warn("failed to capture screenshot", "path", path, "error", err)
		return
	}
	logger.Info("screenshot captured", "path", path)
}

func sanitize(term string) string {
	return strings.ReplaceAll(strings.TrimSpace(term), " ", "_")
}

var settle = time.Sleep
