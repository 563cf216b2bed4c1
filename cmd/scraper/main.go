package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/playwright-community/playwright-go"
	"github.com/snapit/price-scraper/internal/adapter"
	"github.com/snapit/price-scraper/internal/browser"
	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/snapit/price-scraper/internal/runner"
	"github.com/snapit/price-scraper/internal/store"
	"github.com/snapit/price-scraper/internal/terms"
	"github.com/snapit/price-scraper/pkg/logger"
)

func main() {
	var (
		platformFlag = flag.String("platform", "zepto", "storefront to scrape: zepto, blinkit or instamart")
		termsFlag    = flag.String("terms", "", "comma-separated search terms (overrides SEARCH_TERMS)")
		fileFlag     = flag.String("file", "", "path to a file with one search term per line")
		headlessFlag = flag.Bool("headless", true, "run the browser headless")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	platform, err := models.ParsePlatform(*platformFlag)
	if err != nil {
		log.Error("unknown platform", "platform", *platformFlag, "error", err)
		os.Exit(1)
	}

	headless := cfg.Browser.Headless
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			headless = *headlessFlag
		}
	})

	explicit := *termsFlag
	if explicit == "" {
		explicit = os.Getenv("SEARCH_TERMS")
	}
	termsFile := *fileFlag
	if termsFile == "" {
		termsFile = os.Getenv("SEARCH_TERMS_FILE")
	}
	searchTerms := terms.Resolve(explicit, termsFile, flag.Args())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pc := cfg.Platform(platform)
	if out := os.Getenv("OUTPUT_FILE"); out != "" {
		pc.OutputFile = out
	}

	docStore := store.New(log)
	defer docStore.Close()

	factory := func() (runner.Session, adapter.Adapter, error) {
		opts := browser.DefaultOptions()
		opts.Headless = headless
		opts.UserAgent = cfg.Browser.UserAgent
		opts.Timeout = cfg.Browser.Timeout
		if platform == models.PlatformBlinkit || platform == models.PlatformInstamart {
			opts.Geolocation = &playwright.Geolocation{
				Latitude:  pc.Latitude,
				Longitude: pc.Longitude,
			}
		}

		session, err := browser.NewSession(opts)
		if err != nil {
			return nil, nil, err
		}

		var site adapter.Adapter
		switch platform {
		case models.PlatformBlinkit:
			site = adapter.NewBlinkit(session, pc.MaxResults, log)
		case models.PlatformInstamart:
			site = adapter.NewInstamart(session, pc.MaxResults, pc.Latitude, pc.Longitude, log)
		default:
			site = adapter.NewZepto(session, pc.MaxResults, log)
		}
		return session, site, nil
	}

	run := runner.New(
		platform,
		factory,
		store.NewRouter(cfg),
		docStore,
		store.NewFileCache(pc.OutputFile, log),
		log,
	)

	if err := run.Run(ctx, searchTerms); err != nil {
		log.Error("scrape run failed", "platform", platform, "error", err)
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	logger.New("info", "text").Error(msg, "error", err)
	os.Exit(1)
}
