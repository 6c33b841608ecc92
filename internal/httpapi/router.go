// Package httpapi assembles the HTTP surface: the chi router with its
// middleware stack, bearer token identity, health and metrics endpoints,
// and the supervised server that runs it.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cafe-backoffice/internal/config"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/services/billing"
	"cafe-backoffice/internal/services/booking"
	"cafe-backoffice/internal/services/kitchen"
	"cafe-backoffice/internal/services/order"
)

// Handlers are the service handlers mounted under /api.
type Handlers struct {
	Orders   *order.Handler
	Kitchen  *kitchen.Handler
	Bookings *booking.Handler
	Billing  *billing.Handler
}

// NewRouter wires the middleware stack and routes. /health and /metrics
// sit outside authentication and rate limiting.
func NewRouter(cfg *config.Config, h Handlers, health *Health, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Observe(log))
	if len(cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader, billing.IdempotencyHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Method(http.MethodGet, "/health", health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if !cfg.RateLimit.Disabled && cfg.RateLimit.Requests > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Window,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		if cfg.Server.MaxConcurrent > 0 {
			r.Use(chimiddleware.Throttle(cfg.Server.MaxConcurrent))
		}
		r.Use(Authenticate([]byte(cfg.Auth.JWTSecret), log))

		r.Route("/orders", h.Orders.Routes)
		r.Route("/kot", h.Kitchen.Routes)
		r.Route("/bookings", h.Bookings.Routes)
		r.Route("/billing", h.Billing.Routes)
	})

	return r
}
