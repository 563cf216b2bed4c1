package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/query"
	"github.com/snapit/price-scraper/internal/server"
	"github.com/snapit/price-scraper/internal/store"
	"github.com/snapit/price-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	docStore := store.New(log)
	defer docStore.Close()

	querySvc := query.NewService(docStore, cfg, log)
	users := server.NewUserStore(docStore, cfg.Auth, log)
	handlers := server.NewHandlers(cfg, querySvc, users, log)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.NewRouter(handlers),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.ScrapeTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
