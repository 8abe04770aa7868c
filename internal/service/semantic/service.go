// Package semantic exposes query compilation, column resolution, filter
// deduplication and execution over registered or inline table schemas.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devrev/meerkat-sub004/internal/compiler"
	"github.com/devrev/meerkat-sub004/internal/dedupe"
	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/resolution"
)

// DefaultTimeout bounds one compile, resolve or run call.
const DefaultTimeout = 30 * time.Second

// Service provides the semantic query operations.
type Service struct {
	schemas   domain.TableSchemaRepository
	engine    domain.SQLEngine
	compiler  *compiler.Compiler
	pipeline  *resolution.Pipeline
	queryExec domain.QueryExecutor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService creates a Service. schemas may be nil, in which case every
// request must carry its table schemas inline.
func NewService(schemas domain.TableSchemaRepository, engine domain.SQLEngine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := compiler.New(engine, logger)
	return &Service{
		schemas:  schemas,
		engine:   engine,
		compiler: c,
		pipeline: resolution.New(c, logger),
		timeout:  DefaultTimeout,
		logger:   logger,
	}
}

// SetTimeout changes the per-call timeout. Non-positive values disable it.
func (s *Service) SetTimeout(d time.Duration) {
	s.timeout = d
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Compile compiles a query to SQL. An empty query compiles to empty SQL.
func (s *Service) Compile(ctx context.Context, req CompileRequest) (*CompileResult, error) {
	if req.Query.IsEmpty() {
		return &CompileResult{Columns: []compiler.Column{}}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	schemas, err := s.tableSchemas(ctx, req.Query, req.TableSchemas)
	if err != nil {
		return nil, err
	}
	res, err := s.compiler.CompileQuery(ctx, req.Query, schemas)
	if err != nil {
		return nil, err
	}
	return &CompileResult{SQL: res.SQL, Columns: res.Columns}, nil
}

// CompileWithResolution compiles a query and resolves the configured columns
// through their lookup schemas.
func (s *Service) CompileWithResolution(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	if req.Query.IsEmpty() {
		return &ResolveResult{Schema: domain.TableSchema{Name: resolution.ResolvedQueryName}}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	schemas, err := s.tableSchemas(ctx, req.Query, req.TableSchemas)
	if err != nil {
		return nil, err
	}
	res, err := s.pipeline.Resolve(ctx, req.Query, schemas, req.ResolutionConfig)
	if err != nil {
		return nil, err
	}
	return &ResolveResult{SQL: res.SQL, Schema: res.Schema}, nil
}

// DedupeFilters drops the filters BaseSQL already enforces.
func (s *Service) DedupeFilters(_ context.Context, req DedupeRequest) domain.Filters {
	out := dedupe.DedupeFilters(req.Filters, req.BaseSQL)
	if dropped := countLeaves(req.Filters) - countLeaves(out); dropped > 0 {
		s.logger.Debug("deduplicated filters", "dropped", dropped)
	}
	return out
}

// Run compiles a query and executes it. An empty query returns no rows
// without touching the engine.
func (s *Service) Run(ctx context.Context, req CompileRequest) (*RunResult, error) {
	if s.queryExec == nil {
		return nil, fmt.Errorf("semantic query executor is not configured")
	}
	if req.Query.IsEmpty() {
		return &RunResult{Result: &domain.QueryResult{Columns: []string{}, Rows: [][]interface{}{}}}, nil
	}

	compiled, err := s.Compile(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	result, err := s.queryExec.Execute(ctx, compiled.SQL)
	if err != nil {
		return nil, fmt.Errorf("execute compiled query: %w", err)
	}
	s.logger.Debug("semantic query executed", "rows", result.RowCount, "duration", time.Since(start))
	return &RunResult{SQL: compiled.SQL, Result: result}, nil
}

// tableSchemas returns inline schemas when given, otherwise the registered
// schemas of every table the query mentions.
func (s *Service) tableSchemas(ctx context.Context, q domain.Query, inline []domain.TableSchema) ([]domain.TableSchema, error) {
	if len(inline) > 0 {
		return inline, nil
	}
	if s.schemas == nil {
		return nil, domain.ErrValidation("tableSchemas are required")
	}
	schemas, err := s.schemas.GetMany(ctx, q.Tables())
	if err != nil {
		return nil, fmt.Errorf("load table schemas: %w", err)
	}
	return schemas, nil
}

func countLeaves(filters domain.Filters) int {
	n := 0
	for _, f := range filters {
		domain.WalkLeaves(f, func(*domain.LeafFilter) { n++ })
	}
	return n
}
