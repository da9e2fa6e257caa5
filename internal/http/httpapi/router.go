// Package httpapi assembles the HTTP surface: middleware chain and route
// table over the handler set.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/MedusaOnMe/Wifity/internal/http/handlers"
	"github.com/MedusaOnMe/Wifity/internal/infra"
	"github.com/MedusaOnMe/Wifity/internal/middleware"
)

// NewRouter builds the chi router with the standard middleware chain and
// every API route mounted.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Get("/", app.ListImages)
			r.Get("/{id}", app.GetImage)

			// Remote-calling endpoints share one rate limit bucket.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
				r.Post("/generate", app.GenerateImage)
				r.Post("/combine", app.CombineImages)
				r.Post("/edit/create-job", app.CreateEditJob)
				r.Post("/edit", app.EditImage)
			})
		})
		r.Get("/jobs/{id}", app.JobStatus)
	})

	return r
}
