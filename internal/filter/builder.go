// Package filter builds engine expression trees from semantic filters.
//
// Every builder is a pure function: the same inputs always produce a
// structurally identical tree. Builders with a value list follow one shape:
// a single value produces a single predicate, more values produce a
// conjunction or disjunction of per-value predicates in input order.
package filter

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/duckast"
)

// Column is a resolved filter target.
type Column struct {
	Expr duckast.Expr
	Type domain.MemberType
}

// ResolveFunc maps a member name to the column it filters on.
type ResolveFunc func(member string) (Column, error)

// Or returns an empty disjunction ready for Append. It must be populated
// before it is emitted.
func Or() *duckast.ConjunctionExpr { return duckast.Or() }

// And returns an empty conjunction ready for Append. It must be populated
// before it is emitted.
func And() *duckast.ConjunctionExpr { return duckast.And() }

// Equals builds "column = value" for one value, or an OR of equalities for
// several. Array columns test membership with list_contains instead.
func Equals(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) == 0 {
		return nil, domain.ErrValidation("equals filter requires at least one value")
	}
	return anyOf(column, values, typ, func(col, v duckast.Expr) duckast.Expr {
		if typ.IsArray() {
			return duckast.Function("list_contains", col, v)
		}
		return duckast.Equal(col, v)
	})
}

// NotEquals builds "column <> value", combining several values with AND.
func NotEquals(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) == 0 {
		return nil, domain.ErrValidation("notEquals filter requires at least one value")
	}
	return allOf(column, values, typ, func(col, v duckast.Expr) duckast.Expr {
		if typ.IsArray() {
			return duckast.Not(duckast.Function("list_contains", col, v))
		}
		return duckast.Compare(duckast.TypeCompareNotEq, col, v)
	})
}

// In builds "column IN (values...)". A single value collapses to an equality.
// Array columns use list_has_any.
func In(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) == 0 {
		return nil, domain.ErrValidation("in filter requires at least one value")
	}
	if len(values) == 1 {
		return Equals(column, values, typ)
	}
	lits, err := literals(values, typ)
	if err != nil {
		return nil, err
	}
	if typ.IsArray() {
		return duckast.Function("list_has_any", column, duckast.Function("list_value", lits...)), nil
	}
	return duckast.In(column, lits...), nil
}

// NotIn builds "column NOT IN (values...)". A single value collapses to an
// inequality.
func NotIn(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) == 0 {
		return nil, domain.ErrValidation("notIn filter requires at least one value")
	}
	if len(values) == 1 {
		return NotEquals(column, values, typ)
	}
	lits, err := literals(values, typ)
	if err != nil {
		return nil, err
	}
	if typ.IsArray() {
		return duckast.Not(duckast.Function("list_has_any", column, duckast.Function("list_value", lits...))), nil
	}
	return duckast.NotIn(column, lits...), nil
}

// Contains builds a substring match, OR-ing several needles.
func Contains(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) == 0 {
		return nil, domain.ErrValidation("contains filter requires at least one value")
	}
	if typ.IsArray() {
		return nil, domain.ErrValidation("contains is not supported on array members")
	}
	return anyOf(column, values, domain.TypeString, func(col, v duckast.Expr) duckast.Expr {
		return duckast.Function("contains", col, v)
	})
}

// NotContains builds a negated substring match, AND-ing several needles.
func NotContains(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) == 0 {
		return nil, domain.ErrValidation("notContains filter requires at least one value")
	}
	if typ.IsArray() {
		return nil, domain.ErrValidation("notContains is not supported on array members")
	}
	return allOf(column, values, domain.TypeString, func(col, v duckast.Expr) duckast.Expr {
		return duckast.Not(duckast.Function("contains", col, v))
	})
}

// Compare builds a single ordered comparison. op is one of gt, gte, lt, lte.
func Compare(op string, column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	var cmp string
	switch op {
	case domain.OpGt:
		cmp = duckast.TypeCompareGT
	case domain.OpGte:
		cmp = duckast.TypeCompareGTE
	case domain.OpLt:
		cmp = duckast.TypeCompareLT
	case domain.OpLte:
		cmp = duckast.TypeCompareLTE
	default:
		return nil, domain.ErrValidation("unsupported comparison operator %q", op)
	}
	if len(values) != 1 {
		return nil, domain.ErrValidation("%s filter requires exactly one value, got %d", op, len(values))
	}
	if typ.IsArray() {
		return nil, domain.ErrValidation("%s is not supported on array members", op)
	}
	lit, err := Literal(values[0], typ)
	if err != nil {
		return nil, err
	}
	return duckast.Compare(cmp, column, lit), nil
}

// Set builds "column IS NOT NULL".
func Set(column duckast.Expr) duckast.Expr { return duckast.IsNotNull(column) }

// NotSet builds "column IS NULL".
func NotSet(column duckast.Expr) duckast.Expr { return duckast.IsNull(column) }

// InDateRange builds "column BETWEEN from AND to"; values must be [from, to].
func InDateRange(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) != 2 {
		return nil, domain.ErrValidation("inDateRange filter requires exactly two values, got %d", len(values))
	}
	lo, err := Literal(values[0], typ)
	if err != nil {
		return nil, err
	}
	hi, err := Literal(values[1], typ)
	if err != nil {
		return nil, err
	}
	return duckast.Between(column, lo, hi), nil
}

// NotInDateRange negates InDateRange.
func NotInDateRange(column duckast.Expr, values []string, typ domain.MemberType) (duckast.Expr, error) {
	if len(values) != 2 {
		return nil, domain.ErrValidation("notInDateRange filter requires exactly two values, got %d", len(values))
	}
	between, err := InDateRange(column, values, typ)
	if err != nil {
		return nil, err
	}
	return duckast.Not(between), nil
}

// Literal converts a filter value to a typed constant for a member type.
// Array types use their element type.
func Literal(value string, typ domain.MemberType) (duckast.Expr, error) {
	switch typ.Element() {
	case domain.TypeNumber:
		i, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return duckast.Integer(i), nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return nil, domain.ErrValidation("value %q is out of range for a 64-bit integer", value)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, domain.ErrValidation("value %q is not a number", value)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, domain.ErrValidation("value %q is not a finite number", value)
		}
		return duckast.Double(f), nil
	case domain.TypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, domain.ErrValidation("value %q is not a boolean", value)
		}
		return duckast.Bool(b), nil
	default:
		return duckast.String(value), nil
	}
}

// SanitizeStringValue escapes single quotes for callers that splice a value
// into SQL text themselves. Builders never need it.
func SanitizeStringValue(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func literals(values []string, typ domain.MemberType) ([]duckast.Expr, error) {
	out := make([]duckast.Expr, 0, len(values))
	for _, v := range values {
		lit, err := Literal(v, typ)
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
	}
	return out, nil
}

type predicate func(column, value duckast.Expr) duckast.Expr

func anyOf(column duckast.Expr, values []string, typ domain.MemberType, p predicate) (duckast.Expr, error) {
	return combine(Or(), column, values, typ, p)
}

func allOf(column duckast.Expr, values []string, typ domain.MemberType, p predicate) (duckast.Expr, error) {
	return combine(And(), column, values, typ, p)
}

func combine(shell *duckast.ConjunctionExpr, column duckast.Expr, values []string, typ domain.MemberType, p predicate) (duckast.Expr, error) {
	lits, err := literals(values, typ)
	if err != nil {
		return nil, err
	}
	if len(lits) == 1 {
		return p(column, lits[0]), nil
	}
	for _, lit := range lits {
		shell.Append(p(column, lit))
	}
	return shell, nil
}
