package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/snapit/price-scraper/internal/models"
)

// NewRouter wires the API routes. Scrape endpoints run a subprocess that can
// take minutes, so the request timeout sits above the scrape timeout.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Post("/scrape", h.Scrape(models.PlatformZepto))
	r.Post("/scrape/blinkit", h.Scrape(models.PlatformBlinkit))
	r.Post("/scrape/instamart", h.Scrape(models.PlatformInstamart))

	r.Get("/results", h.Results(models.PlatformZepto))
	r.Get("/results/blinkit", h.Results(models.PlatformBlinkit))
	r.Get("/results/instamart", h.Results(models.PlatformInstamart))

	r.Get("/latest", h.Latest(models.PlatformZepto))
	r.Get("/latest/blinkit", h.Latest(models.PlatformBlinkit))
	r.Get("/latest/instamart", h.Latest(models.PlatformInstamart))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
	})

	return r
}
