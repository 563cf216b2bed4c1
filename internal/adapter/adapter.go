// Package adapter drives one storefront's search surface and yields the raw
// content blocks behind each result card. Adapters own navigation and
// locator strategy; turning a block into a record is the extractor's job.
package adapter

import (
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/snapit/price-scraper/internal/models"
)

// ErrNoResults signals that no candidate block appeared within the
// adapter's patience window. It is an expected, retryable outcome.
var ErrNoResults = errors.New("no result blocks appeared before the timeout")

// Adapter is the per-platform scraping protocol.
type Adapter interface {
	Platform() models.Platform

	// Home performs the one-time navigation to the platform's entry page
	// and waits for it to stabilize.
	Home() error

	// Open runs one search and returns the candidate blocks in page order,
	// truncated to the platform's result cap.
	Open(term string) ([]Block, error)

	// HandleLocation re-establishes the delivery location. Best-effort:
	// failures are logged by the adapter and never returned as fatal.
	HandleLocation() error
}

// Block is a snapshot of one candidate result card, captured while the page
// is live so the extractor can work without a browser.
type Block struct {
	// Text is the card's visible text, newline-delimited.
	Text string
	// HTML is the card's inner HTML.
	HTML string
	// Attrs holds link-ish attributes found on the card element itself.
	Attrs map[string]string
	// Ancestors holds the same attribute probes on up to three ancestor
	// levels, nearest first.
	Ancestors []map[string]string
}

// urlAttrs are the data-* attributes probed for a product link, on the card
// and its ancestors.
var urlAttrs = []string{"data-pf", "data-href", "data-url", "data-link"}

const probeTimeout = 1500 // ms; attribute probes must not stall the run

func probeOpts() playwright.LocatorGetAttributeOptions {
	return playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(probeTimeout)}
}

// capture snapshots a live locator into a Block. Individual probe failures
// leave the corresponding field empty.
func capture(card playwright.Locator) Block {
	block := Block{Attrs: map[string]string{}}

	if text, err := card.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
		block.Text = text
	}
	if html, err := card.InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
		block.HTML = html
	}

	if href, err := card.GetAttribute("href", probeOpts()); err == nil && href != "" {
		block.Attrs["href"] = href
	}
	for _, name := range urlAttrs {
		if v, err := card.GetAttribute(name, probeOpts()); err == nil && v != "" {
			block.Attrs[name] = v
		}
	}

	parent := card
	for level := 0; level < 3; level++ {
		parent = parent.Locator("xpath=..")
		probe := map[string]string{}
		for _, name := range urlAttrs {
			if v, err := parent.GetAttribute(name, probeOpts()); err == nil && v != "" {
				probe[name] = v
			}
		}
		block.Ancestors = append(block.Ancestors, probe)
	}

	return block
}

// captureAll snapshots up to max cards in page order.
func captureAll(cards []playwright.Locator, max int) []Block {
	if len(cards) > max {
		cards = cards[:max]
	}
	blocks := make([]Block, 0, len(cards))
	for _, card := range cards {
		blocks = append(blocks, capture(card))
	}
	return blocks
}

// waitForAny waits until at least one element matching the locator is
// attached, bounded by patience. Returns ErrNoResults on timeout.
func waitForAny(loc playwright.Locator, patience time.Duration) error {
	err := loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(patience.Milliseconds())),
	})
	if err != nil {
		return ErrNoResults
	}
	return nil
}

func settle(d time.Duration) {
	time.Sleep(d)
}
