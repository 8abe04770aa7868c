package resolution

import (
	"strings"

	"github.com/devrev/meerkat-sub004/internal/compiler"
	"github.com/devrev/meerkat-sub004/internal/domain"
)

// Names of the wrapper schemas produced by each stage.
const (
	BaseQueryName     = "__base_query"
	UnnestedQueryName = "__unnested_base_query"
	ResolvedQueryName = "__resolved_query"
)

// QuoteIdentifier double-quotes an identifier, escaping embedded quotes.
func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// columnRef is the SQL that reads column from the wrapper table.
func columnRef(table, column string) string {
	return QuoteIdentifier(table) + "." + QuoteIdentifier(column)
}

// Wrap turns a compiled query into a schema whose dimensions are the
// query's output columns, in projection order. Measures of the compiled
// query become plain dimensions of the wrapper.
func Wrap(name string, res *compiler.Result) domain.TableSchema {
	dims := make([]domain.MemberDef, 0, len(res.Columns))
	for _, c := range res.Columns {
		dims = append(dims, domain.MemberDef{
			Name:  c.Alias,
			SQL:   columnRef(name, c.Alias),
			Type:  c.Type,
			Alias: c.Alias,
		})
	}
	return domain.TableSchema{
		Name:       name,
		SQL:        res.SQL,
		Measures:   []domain.MemberDef{},
		Dimensions: dims,
	}
}

// SubstituteDimensions returns a new dimension list for a schema named
// table. Dimensions keep their order; a dimension whose name is a key of
// resolved is replaced in place by its resolved dimensions, and every other
// dimension passes through reading its alias from table. Inputs are not
// modified.
func SubstituteDimensions(dims []domain.MemberDef, resolved map[string][]domain.MemberDef, table string) []domain.MemberDef {
	out := make([]domain.MemberDef, 0, len(dims))
	for _, d := range dims {
		if repl, ok := resolved[d.Name]; ok {
			for _, r := range repl {
				out = append(out, cloneDef(r))
			}
			continue
		}
		pass := cloneDef(d)
		alias := d.Alias
		if alias == "" {
			alias = d.Name
		}
		pass.SQL = columnRef(table, alias)
		pass.Modifiers = nil
		out = append(out, pass)
	}
	return out
}

func cloneDef(d domain.MemberDef) domain.MemberDef {
	if d.Modifiers != nil {
		m := *d.Modifiers
		d.Modifiers = &m
	}
	return d
}

func member(table, field string) string {
	return table + "." + field
}
