package app

import (
	"context"
	"log/slog"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

// checkRegisteredSchemas re-parses the SQL of every registered schema with
// the current engine and logs the ones it rejects. It never fails startup.
func checkRegisteredSchemas(ctx context.Context, repo domain.TableSchemaRepository, eng domain.SQLEngine, logger *slog.Logger) int {
	stored, err := repo.List(ctx)
	if err != nil {
		logger.Warn("list registered schemas", "error", err)
		return 0
	}

	broken := 0
	for _, s := range stored {
		if _, err := eng.SerializeSQL(ctx, s.Schema.SQL); err != nil {
			logger.Warn("registered schema does not parse", "schema", s.Schema.Name, "error", err)
			broken++
		}
	}
	logger.Info("table schema registry loaded", "schemas", len(stored), "broken", broken)
	return broken
}
