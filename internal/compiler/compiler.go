// Package compiler turns a semantic query over table schemas into one SQL
// statement. The SELECT is built as an engine AST and rendered to SQL by the
// engine itself; opaque schema and member SQL is spliced in afterwards
// through placeholder identifiers.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/duckast"
)

// Result is a compiled query and the columns it projects.
type Result struct {
	SQL     string
	Columns []Column
}

// Compiler compiles queries through an engine round trip. It holds no
// mutable state and is safe for concurrent use.
type Compiler struct {
	engine domain.SQLEngine
	logger *slog.Logger
}

// New creates a Compiler.
func New(engine domain.SQLEngine, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{engine: engine, logger: logger}
}

// Compile compiles q against schemas into a single self-contained statement.
func (c *Compiler) Compile(ctx context.Context, q domain.Query, schemas []domain.TableSchema) (string, error) {
	res, err := c.CompileQuery(ctx, q, schemas)
	if err != nil {
		return "", err
	}
	return res.SQL, nil
}

// CompileQuery is Compile returning the projected columns as well.
func (c *Compiler) CompileQuery(ctx context.Context, q domain.Query, schemas []domain.TableSchema) (*Result, error) {
	plan, err := BuildPlan(q, schemas)
	if err != nil {
		return nil, err
	}
	sql, err := c.Render(ctx, plan)
	if err != nil {
		return nil, err
	}
	return &Result{SQL: sql, Columns: plan.Columns}, nil
}

// Render sends the plan's AST through the engine and splices the opaque SQL
// fragments into the result.
func (c *Compiler) Render(ctx context.Context, plan *Plan) (string, error) {
	start := time.Now()
	ast, err := duckast.Marshal(plan.AST)
	if err != nil {
		return "", err
	}

	rendered, err := c.engine.DeserializeSQL(ctx, ast)
	if err != nil {
		var cerr *domain.CompilationError
		if errors.As(err, &cerr) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("render query: %w", err)
		}
		return "", &domain.CompilationError{AST: ast, Message: err.Error()}
	}

	sql := Substitute(rendered, plan.Substitutions)
	c.logger.Debug("compiled query",
		"tables", plan.Tables,
		"columns", len(plan.Columns),
		"ast_bytes", len(ast),
		"duration", time.Since(start))
	return sql, nil
}

// Substitute replaces every placeholder in sql in a single pass, so spliced
// fragments are never rescanned.
func Substitute(sql string, subs []Substitution) string {
	if len(subs) == 0 {
		return sql
	}
	pairs := make([]string, 0, 2*len(subs))
	for _, s := range subs {
		pairs = append(pairs, s.Token, s.SQL)
	}
	return strings.NewReplacer(pairs...).Replace(sql)
}
