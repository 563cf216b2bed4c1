// Package server exposes the HTTP API: scrape triggers that shell out to the
// scraper binary, read endpoints over previously scraped data, and auth.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/snapit/price-scraper/internal/query"
	"github.com/snapit/price-scraper/internal/store"
)

const stderrTailLines = 10

type Handlers struct {
	cfg    *config.Config
	query  *query.Service
	users  *UserStore
	logger *slog.Logger
}

func NewHandlers(cfg *config.Config, querySvc *query.Service, users *UserStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		query:  querySvc,
		users:  users,
		logger: logger.With("component", "api"),
	}
}

type ScrapeRequest struct {
	Product string `json:"product"`
}

type ScrapeResponse struct {
	Status     string   `json:"status"`
	ReturnCode int      `json:"returncode"`
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	StderrTail []string `json:"stderr_tail"`
	OutputFile string   `json:"output_file"`
	Term       string   `json:"term"`
}

// Scrape launches the scraper binary for the platform and blocks until it
// finishes or the timeout elapses.
func (h *Handlers) Scrape(platform models.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "product is required")
			return
		}
		term := strings.TrimSpace(req.Product)
		if term == "" {
			h.respondError(w, http.StatusBadRequest, "product is required")
			return
		}

		pc := h.cfg.Platform(platform)

		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Server.ScrapeTimeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, h.cfg.Server.ScraperBinary, "-platform", string(platform))
		cmd.Env = append(os.Environ(),
			"SEARCH_TERMS="+term,
			"OUTPUT_FILE="+pc.OutputFile,
		)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		h.logger.Info("launching scraper", "platform", platform, "term", term)
		err := cmd.Run()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			h.logger.Error("scraper timed out", "platform", platform, "term", term)
			h.respondError(w, http.StatusGatewayTimeout, "scrape timed out")
			return
		}

		returncode := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				returncode = exitErr.ExitCode()
			} else {
				h.logger.Error("failed to launch scraper", "platform", platform, "error", err)
				h.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		status := "ok"
		httpStatus := http.StatusOK
		if returncode != 0 {
			status = "error"
			httpStatus = http.StatusInternalServerError
			h.logger.Error("scraper failed", "platform", platform, "term", term, "returncode", returncode)
		}

		// Record the term so /latest can serve without retyping it.
		if err := store.WriteLastTerm(pc.LastTermFile, term); err != nil {
			h.logger.Warn("failed to record last search term", "platform", platform, "error", err)
		}

		h.respondJSON(w, httpStatus, ScrapeResponse{
			Status:     status,
			ReturnCode: returncode,
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
			StderrTail: tail(stderr.String(), stderrTailLines),
			OutputFile: pc.OutputFile,
			Term:       term,
		})
	}
}

// Results serves stored data for an explicit term query parameter.
func (h *Handlers) Results(platform models.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := strings.TrimSpace(r.URL.Query().Get("term"))
		if term == "" {
			h.respondError(w, http.StatusBadRequest, "term is required")
			return
		}
		items := h.query.Results(r.Context(), platform, term)
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"items": emptyIfNil(items),
		})
	}
}

// Latest serves stored data for the platform's most recently scraped term.
func (h *Handlers) Latest(platform models.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term, items := h.query.Latest(r.Context(), platform)

		var lastTerm interface{}
		if term != "" {
			lastTerm = term
		}
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"items":     emptyIfNil(items),
			"last_term": lastTerm,
		})
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func emptyIfNil(items []map[string]interface{}) interface{} {
	if items == nil {
		return []interface{}{}
	}
	return items
}

// tail keeps the last n lines of s, for quick failure triage in responses.
func tail(s string, n int) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
