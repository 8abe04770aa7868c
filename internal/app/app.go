// Package app wires the engine, the schema registry and the semantic
// service into a runnable HTTP application.
package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/devrev/meerkat-sub004/internal/api"
	"github.com/devrev/meerkat-sub004/internal/config"
	"github.com/devrev/meerkat-sub004/internal/db/repository"
	"github.com/devrev/meerkat-sub004/internal/engine"
	"github.com/devrev/meerkat-sub004/internal/middleware"
	"github.com/devrev/meerkat-sub004/internal/service/semantic"
)

// Deps holds what main() opens and owns: the databases, config and logger.
type Deps struct {
	Cfg     *config.Config
	DuckDB  *sql.DB
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App is the wired application.
type App struct {
	Engine   *engine.DuckDB
	Schemas  *repository.TableSchemaRepo
	Semantic *semantic.Service
	Handler  http.Handler
}

// New wires repositories, the engine, services and the router from deps.
// Registered schemas whose SQL no longer parses are reported as warnings.
func New(ctx context.Context, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := deps.Cfg

	schemaRepo := repository.NewTableSchemaRepo(deps.WriteDB, deps.ReadDB)
	eng := engine.New(deps.DuckDB, logger.With("component", "engine"))

	svc := semantic.NewService(schemaRepo, eng, logger.With("component", "semantic"))
	svc.SetQueryExecutor(eng)
	svc.SetTimeout(cfg.CompileTimeout)

	checkRegisteredSchemas(ctx, schemaRepo, eng, logger)

	handler := api.NewHandler(svc, eng, logger.With("component", "api"))
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger.With("component", "http"),
	})

	return &App{
		Engine:   eng,
		Schemas:  schemaRepo,
		Semantic: svc,
		Handler:  router,
	}, nil
}
