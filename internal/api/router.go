package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the HTTP surface: health, chat, search, ingest, metrics.
func NewRouter(handler *Handler, corsOrigins []string, rateLimitRPM int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	if rateLimitRPM > 0 {
		r.Use(rateLimitMiddleware(rateLimitRPM))
	}

	r.Get("/health", handler.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", handler.ChatHandler)
		r.Post("/search", handler.SearchHandler)
		r.Post("/ingest", handler.IngestHandler)
		r.Get("/metrics", handler.MetricsHandler)
	})

	return r
}
