package duckast

import (
	"encoding/json"
	"fmt"
)

// ColumnRef creates a column reference from its name parts,
// e.g. ColumnRef("orders", "customer_id").
func ColumnRef(names ...string) *ColumnRefExpr {
	return &ColumnRefExpr{
		ExprBase:    ExprBase{Class: ClassColumnRef, Type: TypeColumnRef},
		ColumnNames: append([]string{}, names...),
	}
}

func constant(id string, v interface{}) *ConstantExpr {
	return &ConstantExpr{
		ExprBase: ExprBase{Class: ClassConstant, Type: TypeValueConstant},
		Value: Value{
			Type:  LogicalType{ID: id},
			Value: v,
		},
	}
}

// String creates a VARCHAR constant. Quoting is left to the engine formatter.
func String(v string) *ConstantExpr { return constant(LogicalVarchar, v) }

// Integer creates a BIGINT constant.
func Integer(v int64) *ConstantExpr { return constant(LogicalBigint, v) }

// Double creates a DOUBLE constant.
func Double(v float64) *ConstantExpr { return constant(LogicalDouble, v) }

// Bool creates a BOOLEAN constant.
func Bool(v bool) *ConstantExpr { return constant(LogicalBoolean, v) }

// Compare creates a binary comparison of the given type.
func Compare(typ string, left, right Expr) *ComparisonExpr {
	return &ComparisonExpr{
		ExprBase: ExprBase{Class: ClassComparison, Type: typ},
		Left:     left,
		Right:    right,
	}
}

// Equal is shorthand for Compare(TypeCompareEqual, left, right).
func Equal(left, right Expr) *ComparisonExpr {
	return Compare(TypeCompareEqual, left, right)
}

// And creates a conjunction; with no children it is an empty shell.
func And(children ...Expr) *ConjunctionExpr {
	return conjunction(TypeConjunctionAnd, children)
}

// Or creates a disjunction; with no children it is an empty shell.
func Or(children ...Expr) *ConjunctionExpr {
	return conjunction(TypeConjunctionOr, children)
}

func conjunction(typ string, children []Expr) *ConjunctionExpr {
	return &ConjunctionExpr{
		ExprBase: ExprBase{Class: ClassConjunction, Type: typ},
		Children: append([]Expr{}, children...),
	}
}

// Append adds children to a conjunction in order.
func (c *ConjunctionExpr) Append(children ...Expr) *ConjunctionExpr {
	c.Children = append(c.Children, children...)
	return c
}

func operator(typ string, children []Expr) *OperatorExpr {
	return &OperatorExpr{
		ExprBase: ExprBase{Class: ClassOperator, Type: typ},
		Children: append([]Expr{}, children...),
	}
}

// In creates "input IN (values...)".
func In(input Expr, values ...Expr) *OperatorExpr {
	return operator(TypeCompareIn, append([]Expr{input}, values...))
}

// NotIn creates "input NOT IN (values...)".
func NotIn(input Expr, values ...Expr) *OperatorExpr {
	return operator(TypeCompareNotIn, append([]Expr{input}, values...))
}

// Not negates child.
func Not(child Expr) *OperatorExpr {
	return operator(TypeOperatorNot, []Expr{child})
}

// IsNull creates "child IS NULL".
func IsNull(child Expr) *OperatorExpr {
	return operator(TypeIsNull, []Expr{child})
}

// IsNotNull creates "child IS NOT NULL".
func IsNotNull(child Expr) *OperatorExpr {
	return operator(TypeIsNotNull, []Expr{child})
}

// Between creates "input BETWEEN lower AND upper".
func Between(input, lower, upper Expr) *BetweenExpr {
	return &BetweenExpr{
		ExprBase: ExprBase{Class: ClassBetween, Type: TypeCompareBetween},
		Input:    input,
		Lower:    lower,
		Upper:    upper,
	}
}

// Function creates a call to a non-operator function.
func Function(name string, args ...Expr) *FunctionExpr {
	return &FunctionExpr{
		ExprBase:     ExprBase{Class: ClassFunction, Type: TypeFunction},
		FunctionName: name,
		Children:     append([]Expr{}, args...),
		OrderBys:     &OrderModifier{Type: ModifierOrder, Orders: []OrderByNode{}},
	}
}

// WithAlias sets the output alias of an expression and returns it.
func WithAlias[E Expr](e E, alias string) E {
	e.base().Alias = alias
	return e
}

// AliasOf returns the alias of an expression.
func AliasOf(e Expr) string {
	return e.base().Alias
}

// BaseTable creates a named table reference with an alias.
func BaseTable(name, alias string) *BaseTableRef {
	return &BaseTableRef{
		TableRefHeader:  TableRefHeader{Type: TableRefBase, Alias: alias},
		TableName:       name,
		ColumnNameAlias: []string{},
	}
}

// Join creates "left <joinType> JOIN right ON condition".
func Join(left, right TableRef, condition Expr, joinType string) *JoinRef {
	return &JoinRef{
		TableRefHeader:             TableRefHeader{Type: TableRefJoin},
		Left:                       left,
		Right:                      right,
		Condition:                  condition,
		JoinType:                   joinType,
		RefType:                    JoinRefRegular,
		UsingColumns:               []string{},
		DuplicateEliminatedColumns: []Expr{},
	}
}

// OrderTerm creates one ORDER BY term.
func OrderTerm(e Expr, descending bool) OrderByNode {
	typ := OrderAscending
	if descending {
		typ = OrderDescending
	}
	return OrderByNode{Type: typ, NullOrder: NullOrderDefault, Expression: e}
}

// OrderBy creates an ORDER BY modifier.
func OrderBy(terms ...OrderByNode) *OrderModifier {
	return &OrderModifier{Type: ModifierOrder, Orders: append([]OrderByNode{}, terms...)}
}

// Limit creates a LIMIT / OFFSET modifier. Either side may be nil.
func Limit(limit, offset Expr) *LimitModifier {
	return &LimitModifier{Type: ModifierLimit, Limit: limit, Offset: offset}
}

// NewSelect creates an empty SELECT node with every list initialised.
func NewSelect() *SelectNode {
	return &SelectNode{
		Type:              QueryNodeSelect,
		Modifiers:         []ResultModifier{},
		CTEMap:            CTEMap{Map: []interface{}{}},
		SelectList:        []Expr{},
		GroupExpressions:  []Expr{},
		GroupSets:         [][]int{},
		AggregateHandling: AggregateStandard,
	}
}

// GroupByAll groups by every expression in exprs as one grouping set.
func (n *SelectNode) GroupByAll(exprs []Expr) {
	n.GroupExpressions = append([]Expr{}, exprs...)
	if len(exprs) == 0 {
		n.GroupSets = [][]int{}
		return
	}
	set := make([]int, len(exprs))
	for i := range exprs {
		set[i] = i
	}
	n.GroupSets = [][]int{set}
}

// Marshal wraps node in the json_deserialize_sql document and encodes it.
func Marshal(node *SelectNode) ([]byte, error) {
	if node == nil {
		return nil, fmt.Errorf("marshal AST: nil select node")
	}
	if node.FromTable == nil {
		return nil, fmt.Errorf("marshal AST: select node has no FROM table")
	}
	data, err := json.Marshal(Payload{Statements: []SelectStatement{{Node: node}}})
	if err != nil {
		return nil, fmt.Errorf("marshal AST: %w", err)
	}
	return data, nil
}

// DecodeError inspects a json_serialize_sql result and returns the parse
// error it carries, if any.
func DecodeError(data []byte) (*ErrorPayload, bool) {
	var p ErrorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	if !p.Error {
		return nil, false
	}
	return &p, true
}
