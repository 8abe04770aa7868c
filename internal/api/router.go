package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/devrev/meerkat-sub004/internal/middleware"
)

// RouterConfig holds the cross-cutting settings of the router.
type RouterConfig struct {
	// RateLimit is applied to /v1 when RequestsPerSecond is positive.
	RateLimit middleware.RateLimitConfig
	// CORSAllowedOrigins enables CORS for these origins when non-empty.
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// NewRouter mounts the handler's routes.
//
//	GET    /healthz
//	POST   /v1/compile
//	POST   /v1/compile/resolved
//	POST   /v1/filters/dedupe
//	POST   /v1/query
//	GET    /v1/schemas
//	POST   /v1/schemas
//	GET    /v1/schemas/{name}
//	DELETE /v1/schemas/{name}
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", h.healthz)

	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimit.RequestsPerSecond > 0 {
			r.Use(middleware.RateLimiter(cfg.RateLimit))
		}
		r.Post("/compile", h.compile)
		r.Post("/compile/resolved", h.compileResolved)
		r.Post("/filters/dedupe", h.dedupeFilters)
		r.Post("/query", h.runQuery)

		r.Route("/schemas", func(r chi.Router) {
			r.Get("/", h.listSchemas)
			r.Post("/", h.createSchema)
			r.Get("/{name}", h.getSchema)
			r.Delete("/{name}", h.deleteSchema)
		})
	})
	return r
}
