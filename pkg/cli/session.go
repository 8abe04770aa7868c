package cli

import (
	"context"
	"errors"
	"fmt"

	internaldb "github.com/devrev/meerkat-sub004/internal/db"
	"github.com/devrev/meerkat-sub004/internal/db/repository"
	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/engine"
	"github.com/devrev/meerkat-sub004/internal/service/semantic"
)

// session is the engine and service one command runs against.
type session struct {
	engine   *engine.DuckDB
	semantic *semantic.Service
	closers  []func() error
}

func openSession(ctx context.Context, opts *options) (*session, error) {
	logger := opts.logger()
	s := &session{}

	duck, err := engine.Open(ctx, opts.duckdbPath)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, duck.Close)
	s.engine = engine.New(duck, logger)

	var schemas domain.TableSchemaRepository
	if opts.registryPath != "" {
		writeDB, readDB, err := internaldb.OpenSQLitePair(opts.registryPath, 2)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open registry: %w", err)
		}
		s.closers = append(s.closers, writeDB.Close, readDB.Close)
		if err := internaldb.RunMigrations(writeDB); err != nil {
			_ = s.Close()
			return nil, err
		}
		schemas = repository.NewTableSchemaRepo(writeDB, readDB)
	}

	s.semantic = semantic.NewService(schemas, s.engine, logger)
	s.semantic.SetQueryExecutor(s.engine)
	return s, nil
}

// Close releases every handle the session opened, most recent first.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
