package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session owns one browser, one context, and one page for the lifetime of a
// scrape run. All adapters of a run drive the same page, mirroring the
// single-window model the storefronts expect.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	// Geolocation, when set, is applied to the context together with the
	// geolocation permission so location prompts resolve silently.
	Geolocation *playwright.Geolocation
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// NewSession starts the automated browser. It first tries the installed
// Chrome channel and falls back to the bundled Chromium; if both launches
// fail the run cannot proceed and the combined error is returned.
func NewSession(opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	logger := slog.Default().With("component", "browser")

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Channel:  playwright.String("chrome"),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			"--no-sandbox",
			"--user-agent=" + opts.UserAgent,
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		logger.Warn("launch with chrome channel failed, retrying with bundled chromium", "error", err)
		launchOpts.Channel = nil
		browser, err = pw.Chromium.Launch(launchOpts)
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}
	if opts.Geolocation != nil {
		contextOpts.Geolocation = opts.Geolocation
		contextOpts.Permissions = []string{"geolocation"}
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &Session{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
		logger:  logger,
	}, nil
}

func (s *Session) Page() playwright.Page {
	return s.page
}

func (s *Session) Navigate(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) Reload() error {
	_, err := s.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}

// ScrollBy scrolls the window down by the given number of pixels.
func (s *Session) ScrollBy(pixels int) error {
	_, err := s.page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels))
	return err
}

// ScrollToBottom scrolls the window by one full document height.
func (s *Session) ScrollToBottom() error {
	_, err := s.page.Evaluate("window.scrollBy(0, document.body.scrollHeight)")
	return err
}

func (s *Session) Screenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
