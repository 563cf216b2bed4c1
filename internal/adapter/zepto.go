package adapter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/snapit/price-scraper/internal/browser"
	"github.com/snapit/price-scraper/internal/models"
)

const (
	zeptoBaseURL = "https://www.zeptonow.com"
	// Product cards on Zepto are anchors whose href carries the /pn/ slug.
	zeptoCardSelector = `xpath=//a[contains(@href, "/pn/")]`
	zeptoPatience     = 20 * time.Second
)

// Zepto searches by typing into the site's search control; results load on
// the same page.
type Zepto struct {
	session    *browser.Session
	maxResults int
	logger     *slog.Logger
}

func NewZepto(session *browser.Session, maxResults int, logger *slog.Logger) *Zepto {
	return &Zepto{
		session:    session,
		maxResults: maxResults,
		logger:     logger.With("component", "zepto"),
	}
}

func (z *Zepto) Platform() models.Platform {
	return models.PlatformZepto
}

func (z *Zepto) Home() error {
	if err := z.session.Navigate(zeptoBaseURL + "/"); err != nil {
		return err
	}
	z.logger.Info("website opened, waiting for page to stabilize")
	settle(10 * time.Second)

	// Bail out early if the search surface never materialized.
	if _, err := z.searchInput(); err != nil {
		return fmt.Errorf("search input not found on initial load: %w", err)
	}
	return nil
}

// HandleLocation is a no-op for Zepto; the site default location is used.
func (z *Zepto) HandleLocation() error {
	z.logger.Info("skipping location selection, using site default")
	return nil
}

func (z *Zepto) Open(term string) ([]Block, error) {
	input, err := z.searchInput()
	if err != nil {
		return nil, ErrNoResults
	}

	if err := input.Click(); err != nil {
		return nil, fmt.Errorf("failed to focus search input: %w", err)
	}
	settle(time.Second)

	// Fill clears any previous query before typing the new one.
	if err := input.Fill(term); err != nil {
		return nil, fmt.Errorf("failed to type search term: %w", err)
	}
	if err := input.Press("Enter"); err != nil {
		return nil, fmt.Errorf("failed to submit search: %w", err)
	}

	z.logger.Info("submitted search, waiting for results", "term", term)
	settle(6 * time.Second)

	page := z.session.Page()
	cardLoc := page.Locator(zeptoCardSelector)
	if err := waitForAny(cardLoc, zeptoPatience); err != nil {
		return nil, err
	}

	cards, err := cardLoc.All()
	if err != nil {
		return nil, fmt.Errorf("failed to query result cards: %w", err)
	}

	// Lazy cards may need a nudge: scroll a little and requery, twice.
	for round := 0; round < 2 && len(cards) < z.maxResults; round++ {
		if err := z.session.ScrollBy(600); err != nil {
			break
		}
		settle(time.Second)
		more, err := cardLoc.All()
		if err != nil {
			break
		}
		if len(more) > len(cards) {
			cards = more
		}
	}

	z.logger.Info("found result cards", "term", term, "count", len(cards))
	return captureAll(cards, z.maxResults), nil
}

// searchInput locates the search control, preferring a real input field and
// falling back to clicking a "Search" trigger that reveals one.
func (z *Zepto) searchInput() (playwright.Locator, error) {
	page := z.session.Page()

	inputSelector := `xpath=//input[contains(@placeholder, "Search")] | //input[@type="text"]`
	input := page.Locator(inputSelector).First()
	if err := input.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(zeptoPatience.Milliseconds())),
	}); err == nil {
		return input, nil
	}

	triggers, err := page.Locator(`xpath=//span[contains(text(), "Search")]`).All()
	if err != nil {
		return nil, fmt.Errorf("search input not found: %w", err)
	}
	for _, trigger := range triggers {
		if err := trigger.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err != nil {
			continue
		}
		settle(time.Second)
		input := page.Locator(inputSelector).First()
		if err := input.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(5000),
		}); err == nil {
			return input, nil
		}
	}

	return nil, fmt.Errorf("search input not found")
}
