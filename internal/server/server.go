// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voyas/api/internal"
	"github.com/voyas/api/internal/handler"
	ratelimiter "github.com/voyas/api/internal/rate_limiter"
)

const (
	Name    = "voyas-api"
	Version = "0.1.0"

	maxBodyBytes = 64 * 1024
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Logger    zerolog.Logger
	Messages  handler.MessageService
	DB        handler.Pinger
	StartedAt time.Time

	// APIPrefix is prepended to every API route, e.g. "/api/v1".
	APIPrefix      string
	AllowedOrigins []string

	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool

	// Limiter guards write endpoints. Nil disables rate limiting.
	Limiter *ratelimiter.IPRateLimiter
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(internal.Middleware(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(internal.MaxBodySize(maxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Metrics endpoint (for Prometheus scraping), outside the API prefix.
	r.Handle("/metrics", promhttp.Handler())

	api := func(r chi.Router) {
		r.Get("/", handler.Root(Name, Version))
		r.Get("/health", handler.Health(d.DB, d.StartedAt, Version))

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", handler.ListMessages(d.Messages, d.Logger))

			create := http.Handler(handler.CreateMessage(d.Messages, d.Logger))
			if d.Limiter != nil {
				create = d.Limiter.Middleware(create)
			}
			r.Method(http.MethodPost, "/", create)
		})
	}

	if d.APIPrefix == "" {
		api(r)
	} else {
		r.Route(d.APIPrefix, api)
	}

	return r
}
