package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"duck-olap/internal/middleware"
)

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	RateLimit      middleware.RateLimitConfig
	AllowedOrigins []string
	MaxBodyBytes   int64
	QueryTimeout   time.Duration
	Logger         *slog.Logger
}

// NewRouter wires h behind request IDs, access logging, panic recovery,
// CORS, rate limiting and the body and time limits.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Run-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(cfg.RateLimit))
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	if cfg.QueryTimeout > 0 {
		r.Use(middleware.Timeout(cfg.QueryTimeout))
	}

	h.Routes(r)
	return r
}
