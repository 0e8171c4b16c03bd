package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordancooper-dev/keygate/config"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	r.Use(CorrelationIDMiddleware)
	if cfg.HTTP.CORSAllowedOrigins != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: strings.Split(cfg.HTTP.CORSAllowedOrigins, ","),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", APIKeyHeader, CorrelationIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)

	if cfg.HTTP.MaxRequestBytes > 0 {
		r.Use(middleware.RequestSize(cfg.HTTP.MaxRequestBytes))
	}

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// Health probes
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		// Key management
		r.Route("/keys", func(r chi.Router) {
			r.Post("/", h.HandleCreateKey)
			r.Get("/", h.HandleListKeys)
			r.Get("/{id}", h.HandleGetKey)
			r.Delete("/{id}", h.HandleRevokeKey)
		})

		// Items require a valid API key
		r.Route("/items", func(r chi.Router) {
			r.Use(h.RequireAPIKey)
			r.Post("/", h.HandleCreateItem)
			r.Get("/", h.HandleListItems)
			r.Get("/{id}", h.HandleGetItem)
			r.Patch("/{id}", h.HandleUpdateItem)
			r.Put("/{id}", h.HandleUpdateItem)
			r.Delete("/{id}", h.HandleDeleteItem)
		})
	})

	return r
}
