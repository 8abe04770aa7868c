package filter

import (
	"fmt"

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/duckast"
)

// Build converts a filter tree into an expression. An and/or whose children
// are all empty yields nil, so an empty conjunction is never emitted.
func Build(f domain.Filter, resolve ResolveFunc) (duckast.Expr, error) {
	switch n := f.(type) {
	case *domain.LeafFilter:
		col, err := resolve(n.Member)
		if err != nil {
			return nil, err
		}
		expr, err := Leaf(col, n.Operator, n.Values)
		if err != nil {
			return nil, fmt.Errorf("filter on %q: %w", n.Member, err)
		}
		return expr, nil
	case *domain.AndFilter:
		return buildGroup(And(), n.And, resolve)
	case *domain.OrFilter:
		return buildGroup(Or(), n.Or, resolve)
	case nil:
		return nil, nil
	default:
		return nil, domain.ErrValidation("unsupported filter node %T", f)
	}
}

// BuildAll ANDs a list of top-level filters. It returns nil for an empty list.
func BuildAll(filters domain.Filters, resolve ResolveFunc) (duckast.Expr, error) {
	return buildGroup(And(), filters, resolve)
}

// Leaf builds the predicate for one operator.
func Leaf(col Column, op string, values []string) (duckast.Expr, error) {
	switch op {
	case domain.OpEquals:
		return Equals(col.Expr, values, col.Type)
	case domain.OpNotEquals:
		return NotEquals(col.Expr, values, col.Type)
	case domain.OpIn:
		return In(col.Expr, values, col.Type)
	case domain.OpNotIn:
		return NotIn(col.Expr, values, col.Type)
	case domain.OpContains:
		return Contains(col.Expr, values, col.Type)
	case domain.OpNotContains:
		return NotContains(col.Expr, values, col.Type)
	case domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return Compare(op, col.Expr, values, col.Type)
	case domain.OpSet:
		return Set(col.Expr), nil
	case domain.OpNotSet:
		return NotSet(col.Expr), nil
	case domain.OpInDateRange:
		return InDateRange(col.Expr, values, col.Type)
	case domain.OpNotInDateRange:
		return NotInDateRange(col.Expr, values, col.Type)
	default:
		return nil, domain.ErrValidation("unknown filter operator %q", op)
	}
}

func buildGroup(shell *duckast.ConjunctionExpr, children domain.Filters, resolve ResolveFunc) (duckast.Expr, error) {
	for _, c := range children {
		expr, err := Build(c, resolve)
		if err != nil {
			return nil, err
		}
		if expr != nil {
			shell.Append(expr)
		}
	}
	switch len(shell.Children) {
	case 0:
		return nil, nil
	case 1:
		return shell.Children[0], nil
	default:
		return shell, nil
	}
}
