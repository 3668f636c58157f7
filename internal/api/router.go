// internal/api/router.go
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions configures the middleware stack
type RouterOptions struct {
	// RateLimit is requests per minute per IP (0 disables)
	RateLimit int
	// CORSOrigins enables CORS for these origins when non-empty
	CORSOrigins []string
	// Timeout bounds each request (default: 30s)
	Timeout time.Duration
	// AccessLog enables chi's request logger
	AccessLog bool
}

// NewRouter wires the middleware stack and routes
func NewRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Core middleware
	r.Use(RequestID)
	if opts.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))
	r.Use(MaxBodySize)

	if opts.RateLimit > 0 {
		limiter := NewRateLimiter(opts.RateLimit, time.Minute)
		r.Use(limiter.Middleware)
	}

	if len(opts.CORSOrigins) > 0 {
		r.Use(CORSMiddleware(opts.CORSOrigins))
	}

	// Routes
	r.Get("/", h.Health)
	r.Get("/health", h.Health)
	r.Post("/ikc_search", h.Search)

	return r
}
