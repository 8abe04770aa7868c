package semantic

import (
	"github.com/devrev/meerkat-sub004/internal/compiler"
	"github.com/devrev/meerkat-sub004/internal/domain"
)

// CompileRequest is a query plus the schemas it runs against. When
// TableSchemas is empty the schemas are loaded from the registry by the
// tables the query mentions.
type CompileRequest struct {
	Query        domain.Query         `json:"query"`
	TableSchemas []domain.TableSchema `json:"tableSchemas,omitempty"`
}

// ResolveRequest is a CompileRequest with a resolution config.
type ResolveRequest struct {
	CompileRequest
	ResolutionConfig domain.ResolutionConfig `json:"resolutionConfig"`
}

// DedupeRequest asks which filters are not already enforced by BaseSQL.
type DedupeRequest struct {
	Filters domain.Filters `json:"filters"`
	BaseSQL string         `json:"baseSql"`
}

// CompileResult is compiled SQL and the columns it projects.
type CompileResult struct {
	SQL     string            `json:"sql"`
	Columns []compiler.Column `json:"columns"`
}

// ResolveResult is resolved SQL and the final schema describing its columns.
type ResolveResult struct {
	SQL    string             `json:"sql"`
	Schema domain.TableSchema `json:"schema"`
}

// RunResult is compiled SQL and its execution output.
type RunResult struct {
	SQL    string              `json:"sql"`
	Result *domain.QueryResult `json:"result"`
}
