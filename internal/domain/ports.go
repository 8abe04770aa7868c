package domain

import (
	"context"
	"time"
)

// SQLEngine is the engine round-trip boundary. Implementations render a
// JSON-serialized parsed AST back into SQL text with the engine's own
// formatter, and parse SQL text into that same wire format.
type SQLEngine interface {
	// DeserializeSQL renders the AST payload to SQL. Rejections surface as
	// *CompilationError carrying ast.
	DeserializeSQL(ctx context.Context, ast []byte) (string, error)
	// SerializeSQL parses SQL into the engine's AST payload. Parse failures
	// ({"error": true, "error_message": ...}) surface as *CompilationError.
	SerializeSQL(ctx context.Context, sql string) ([]byte, error)
}

// QueryResult is the tabular output of an executed statement.
type QueryResult struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}

// QueryExecutor runs SQL produced by the compiler.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (*QueryResult, error)
}

// StoredSchema is a registry entry.
type StoredSchema struct {
	ID        string      `json:"id"`
	Schema    TableSchema `json:"schema"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableSchemaRepository persists table schemas by name.
type TableSchemaRepository interface {
	Create(ctx context.Context, s TableSchema) (*StoredSchema, error)
	Upsert(ctx context.Context, s TableSchema) (*StoredSchema, error)
	GetByName(ctx context.Context, name string) (*StoredSchema, error)
	GetMany(ctx context.Context, names []string) ([]TableSchema, error)
	List(ctx context.Context) ([]StoredSchema, error)
	Delete(ctx context.Context, name string) error
}
