// Package engine adapts an embedded DuckDB connection to the compiler's
// engine boundary: AST round trips through json_serialize_sql and
// json_deserialize_sql, and execution of compiled statements.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register the duckdb driver

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/duckast"
)

// Compile-time checks.
var (
	_ domain.SQLEngine     = (*DuckDB)(nil)
	_ domain.QueryExecutor = (*DuckDB)(nil)
)

// DuckDB wraps a DuckDB *sql.DB. The pool hands each concurrent call its
// own connection, so one DuckDB value serves any number of compilations.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens a DuckDB database at path ("" for in-memory) and checks that it
// answers.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}

// New creates a DuckDB engine over db.
func New(db *sql.DB, logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{db: db, logger: logger}
}

// DeserializeSQL renders a serialized AST to SQL text with DuckDB's own
// formatter.
func (e *DuckDB) DeserializeSQL(ctx context.Context, ast []byte) (string, error) {
	var out sql.NullString
	err := e.db.QueryRowContext(ctx, "SELECT json_deserialize_sql(?::JSON)", string(ast)).Scan(&out)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("deserialize sql: %w", ctxErr)
		}
		return "", &domain.CompilationError{AST: ast, Message: err.Error()}
	}
	if !out.Valid {
		return "", &domain.CompilationError{AST: ast, Message: "engine returned no SQL"}
	}
	return out.String, nil
}

// SerializeSQL parses SQL text into DuckDB's serialized AST.
func (e *DuckDB) SerializeSQL(ctx context.Context, query string) ([]byte, error) {
	var out sql.NullString
	err := e.db.QueryRowContext(ctx, "SELECT CAST(json_serialize_sql(?) AS VARCHAR)", query).Scan(&out)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("serialize sql: %w", ctxErr)
		}
		return nil, &domain.CompilationError{Message: err.Error()}
	}
	if !out.Valid {
		return nil, &domain.CompilationError{Message: "engine returned no AST"}
	}
	data := []byte(out.String)
	if p, failed := duckast.DecodeError(data); failed {
		return nil, &domain.CompilationError{AST: data, Message: p.ErrorMessage}
	}
	return data, nil
}

// Execute runs a statement and collects every row.
func (e *DuckDB) Execute(ctx context.Context, query string) (*domain.QueryResult, error) {
	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	e.logger.Debug("executed query", "rows", result.RowCount, "duration", time.Since(start))
	return result, nil
}

// Ping reports whether the database answers.
func (e *DuckDB) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	return nil
}

func scanRows(rows *sql.Rows) (*domain.QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	resultRows := [][]interface{}{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		// Byte slices become strings for JSON output.
		row := make([]interface{}, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.QueryResult{
		Columns:  cols,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}
