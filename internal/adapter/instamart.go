package adapter

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/snapit/price-scraper/internal/browser"
	"github.com/snapit/price-scraper/internal/models"
)

const (
	instamartBaseURL  = "https://www.swiggy.com"
	instamartPatience = 25 * time.Second

	// The card markup on Instamart churns; match the known data-testid and
	// class variants, plus plain instamart anchors as a last resort.
	instamartCardSelector = `xpath=//div[contains(@data-testid,'item-card') or contains(@data-testid,'product-card') or contains(@class,'itemCard') or contains(@class,'product-card') or contains(@class,'_1ds9T')] | //a[contains(@href,'instamart')]`

	instamartLocationPin = "560001"
)

// Instamart opens a direct search URL carrying the configured coordinates.
type Instamart struct {
	session    *browser.Session
	maxResults int
	lat, lng   float64
	logger     *slog.Logger
}

func NewInstamart(session *browser.Session, maxResults int, lat, lng float64, logger *slog.Logger) *Instamart {
	return &Instamart{
		session:    session,
		maxResults: maxResults,
		lat:        lat,
		lng:        lng,
		logger:     logger.With("component", "instamart"),
	}
}

func (i *Instamart) Platform() models.Platform {
	return models.PlatformInstamart
}

func (i *Instamart) Home() error {
	home := fmt.Sprintf("%s/instamart?lat=%v&lng=%v", instamartBaseURL, i.lat, i.lng)
	if err := i.session.Navigate(home); err != nil {
		return err
	}
	i.logger.Info("instamart opened, waiting for page to stabilize")
	settle(8 * time.Second)

	if err := i.HandleLocation(); err != nil {
		i.logger.Warn("location set skipped", "error", err)
	}
	return nil
}

func (i *Instamart) Open(term string) ([]Block, error) {
	searchURL := fmt.Sprintf("%s/instamart/search?query=%s&lat=%v&lng=%v",
		instamartBaseURL, url.QueryEscape(term), i.lat, i.lng)
	if err := i.session.Navigate(searchURL); err != nil {
		return nil, fmt.Errorf("failed to open search url: %w", err)
	}
	i.logger.Info("opened search url", "url", searchURL)
	settle(6 * time.Second)

	cardLoc := i.session.Page().Locator(instamartCardSelector)
	if err := waitForAny(cardLoc, instamartPatience); err != nil {
		return nil, err
	}

	cards, err := cardLoc.All()
	if err != nil {
		return nil, fmt.Errorf("failed to query result cards: %w", err)
	}
	if len(cards) == 0 {
		return nil, ErrNoResults
	}

	i.logger.Info("found result cards", "term", term, "count", len(cards))
	return captureAll(cards, i.maxResults), nil
}

// HandleLocation tries to pin a deliverable location via the address dialog.
func (i *Instamart) HandleLocation() error {
	page := i.session.Page()

	triggers, err := page.Locator(`xpath=//button[contains(.,'Deliver') or contains(.,'Change') or contains(.,'Location') or contains(.,'Add address')]`).All()
	if err == nil {
		for _, trigger := range triggers {
			if err := trigger.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
				settle(400 * time.Millisecond)
				break
			}
		}
	}

	input := page.Locator(`xpath=//input[contains(@placeholder,'location') or contains(@placeholder,'address') or contains(@aria-label,'location') or contains(@aria-label,'address') or contains(@name,'location') or contains(@name,'address')]`).First()
	if err := input.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		return fmt.Errorf("no usable location input: %w", err)
	}
	settle(300 * time.Millisecond)
	if err := input.Fill(instamartLocationPin); err != nil {
		return fmt.Errorf("failed to enter pin: %w", err)
	}
	settle(1200 * time.Millisecond)

	suggestions, err := page.Locator(`xpath=//li | //div[contains(@class,'suggestion') or contains(@data-testid,'suggestion')]`).All()
	if err == nil && len(suggestions) > 0 {
		if err := suggestions[0].Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
			settle(time.Second)
		}
	} else if err := input.Press("Enter"); err == nil {
		settle(time.Second)
	}

	confirms, err := page.Locator(`xpath=//button[contains(.,'Deliver') or contains(.,'Continue') or contains(.,'Save') or contains(.,'Confirm')]`).All()
	if err == nil {
		for _, btn := range confirms {
			if err := btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(probeTimeout)}); err == nil {
				settle(800 * time.Millisecond)
				break
			}
		}
	}

	i.logger.Info("location set attempt done", "pin", instamartLocationPin)
	return nil
}
