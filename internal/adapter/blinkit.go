package adapter

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/snapit/price-scraper/internal/browser"
	"github.com/snapit/price-scraper/internal/models"
)

const (
	blinkitBaseURL  = "https://www.blinkit.com"
	blinkitPatience = 25 * time.Second

	// A product card is a role=button block holding an ADD control, found
	// after the product container or carrying a data-pf product link.
	blinkitCardSelector = `xpath=//*[@id='product_container']/following::div[@role='button'][.//div[normalize-space()='ADD']]` +
		` | //div[@role='button'][.//div[normalize-space()='ADD'] and @data-pf]`

	// Secondary strategy when the primary one collapses into a single
	// oversized container: the nearest card-shaped ancestor of each ADD
	// button.
	blinkitFallbackSelector = `xpath=//button[contains(.,'ADD')]/ancestor::*[self::article or self::div or self::li][1]`

	blinkitLocationPin = "560001"
)

// Blinkit navigates straight to a constructed search URL per term and pages
// by full-height scrolling.
type Blinkit struct {
	session    *browser.Session
	maxResults int
	dumpHTML   bool
	logger     *slog.Logger
}

func NewBlinkit(session *browser.Session, maxResults int, logger *slog.Logger) *Blinkit {
	return &Blinkit{
		session:    session,
		maxResults: maxResults,
		dumpHTML:   os.Getenv("DUMP_HTML") != "",
		logger:     logger.With("component", "blinkit"),
	}
}

func (b *Blinkit) Platform() models.Platform {
	return models.PlatformBlinkit
}

func (b *Blinkit) Home() error {
	if err := b.session.Navigate(blinkitBaseURL + "/"); err != nil {
		return err
	}
	b.logger.Info("blinkit opened, waiting for page to stabilize")
	settle(6 * time.Second)
	return nil
}

func (b *Blinkit) Open(term string) ([]Block, error) {
	searchURL := fmt.Sprintf("%s/s/?q=%s", blinkitBaseURL, url.QueryEscape(term))
	if err := b.session.Navigate(searchURL); err != nil {
		return nil, fmt.Errorf("failed to open search url: %w", err)
	}
	b.logger.Info("opened search url", "url", searchURL)
	settle(6 * time.Second)

	if err := b.HandleLocation(); err != nil {
		b.logger.Warn("location modal handling skipped", "error", err)
	}
	settle(3 * time.Second)

	if b.dumpHTML {
		b.dumpPage(term)
	}

	page := b.session.Page()
	cardLoc := page.Locator(blinkitCardSelector)

	var cards []playwright.Locator
	if err := waitForAny(cardLoc, blinkitPatience); err == nil {
		cards, _ = cardLoc.All()
	} else {
		// The wait timing out does not always mean zero cards; requery once
		// without waiting before concluding anything.
		cards, _ = cardLoc.All()
	}

	// Scroll to load more until the cap is met or growth stalls.
	stalls := 0
	for len(cards) < b.maxResults && stalls < 6 {
		if err := b.session.ScrollToBottom(); err != nil {
			break
		}
		settle(1500 * time.Millisecond)
		more, err := cardLoc.All()
		if err != nil {
			break
		}
		if len(more) > len(cards) {
			cards = more
		} else {
			stalls++
		}
	}

	// A single hit is usually the whole results container, not a card.
	if len(cards) <= 1 {
		if fallback, err := page.Locator(blinkitFallbackSelector).All(); err == nil && len(fallback) > 0 {
			cards = fallback
		}
	}

	if len(cards) == 0 {
		return nil, ErrNoResults
	}

	b.logger.Info("found result cards", "term", term, "count", len(cards))
	return captureAll(cards, b.maxResults), nil
}

// HandleLocation dismisses the location modal if one is present, preferring
// the detect-my-location shortcut and falling back to entering a pin.
func (b *Blinkit) HandleLocation() error {
	page := b.session.Page()

	dialogs, err := page.Locator(`xpath=//div[contains(@role,'dialog') or contains(@class,'modal')]`).All()
	if err != nil || len(dialogs) == 0 {
		return nil
	}

	detect := page.Locator(`xpath=//button[contains(.,'Detect my location')] | //button[contains(.,'Detect')]`)
	if count, err := detect.Count(); err == nil && count > 0 {
		if err := detect.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
			if b.awaitModalGone() {
				b.logger.Info("location modal closed via detect")
				return nil
			}
		}
	}

	input := page.Locator(`xpath=//input[contains(@placeholder,'delivery location') or contains(@placeholder,'location') or contains(@aria-label,'location')]`).First()
	if err := input.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err != nil {
		return fmt.Errorf("no usable location input: %w", err)
	}
	settle(300 * time.Millisecond)
	if err := input.Fill(blinkitLocationPin); err != nil {
		return fmt.Errorf("failed to enter pin: %w", err)
	}
	settle(time.Second)
	if err := input.Press("Enter"); err == nil {
		settle(time.Second)
	}

	suggestions, err := page.Locator(`xpath=//li | //div[contains(@data-testid,'suggestion') or contains(@class,'suggestion')]`).All()
	if err == nil && len(suggestions) > 0 {
		if err := suggestions[0].Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
			settle(800 * time.Millisecond)
		}
	}

	confirms, err := page.Locator(`xpath=//button[contains(.,'Deliver') or contains(.,'Confirm') or contains(.,'Continue')]`).All()
	if err == nil {
		for _, btn := range confirms {
			if err := btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
				settle(600 * time.Millisecond)
				break
			}
		}
	}

	if b.awaitModalGone() {
		b.logger.Info("location modal closed via pin", "pin", blinkitLocationPin)
	}
	return nil
}

// awaitModalGone waits briefly for any dialog to disappear.
func (b *Blinkit) awaitModalGone() bool {
	dialog := b.session.Page().Locator(`xpath=//div[contains(@role,'dialog') or contains(@class,'modal')]`).First()
	err := dialog.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: playwright.Float(8000),
	})
	return err == nil
}

func (b *Blinkit) dumpPage(term string) {
	content, err := b.session.Page().Content()
	if err != nil {
		b.logger.Warn("could not dump html", "error", err)
		return
	}
	path := fmt.Sprintf("blinkit_%s_page.html", term)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		b.logger.Warn("could not dump html", "error", err)
		return
	}
	b.logger.Info("saved page html for inspection", "path", path)
}
