// Package duckast models the subset of DuckDB's JSON-serialized parsed AST
// (the json_serialize_sql / json_deserialize_sql wire format) that the
// semantic compiler emits.
//
// Node shapes mirror the engine's serializer field for field. Slices are
// always emitted as arrays, never null, and absent child nodes as null.
package duckast

// Expression classes.
const (
	ClassColumnRef   = "COLUMN_REF"
	ClassConstant    = "CONSTANT"
	ClassComparison  = "COMPARISON"
	ClassConjunction = "CONJUNCTION"
	ClassOperator    = "OPERATOR"
	ClassBetween     = "BETWEEN"
	ClassFunction    = "FUNCTION"
)

// Expression types.
const (
	TypeColumnRef      = "COLUMN_REF"
	TypeValueConstant  = "VALUE_CONSTANT"
	TypeCompareEqual   = "COMPARE_EQUAL"
	TypeCompareNotEq   = "COMPARE_NOTEQUAL"
	TypeCompareLT      = "COMPARE_LESSTHAN"
	TypeCompareGT      = "COMPARE_GREATERTHAN"
	TypeCompareLTE     = "COMPARE_LESSTHANOREQUALTO"
	TypeCompareGTE     = "COMPARE_GREATERTHANOREQUALTO"
	TypeCompareIn      = "COMPARE_IN"
	TypeCompareNotIn   = "COMPARE_NOT_IN"
	TypeCompareBetween = "COMPARE_BETWEEN"
	TypeConjunctionAnd = "CONJUNCTION_AND"
	TypeConjunctionOr  = "CONJUNCTION_OR"
	TypeOperatorNot    = "OPERATOR_NOT"
	TypeIsNull         = "OPERATOR_IS_NULL"
	TypeIsNotNull      = "OPERATOR_IS_NOT_NULL"
	TypeFunction       = "FUNCTION"
)

// Logical type ids used by constants.
const (
	LogicalVarchar = "VARCHAR"
	LogicalBigint  = "BIGINT"
	LogicalDouble  = "DOUBLE"
	LogicalBoolean = "BOOLEAN"
)

// Table reference, join, query node and modifier enums.
const (
	TableRefBase = "BASE_TABLE"
	TableRefJoin = "JOIN"

	JoinLeft = "LEFT"

	JoinRefRegular = "REGULAR"

	QueryNodeSelect = "SELECT_NODE"

	ModifierOrder = "ORDER_MODIFIER"
	ModifierLimit = "LIMIT_MODIFIER"

	OrderAscending   = "ASCENDING"
	OrderDescending  = "DESCENDING"
	NullOrderDefault = "ORDER_DEFAULT"

	AggregateStandard = "STANDARD_HANDLING"
)

// Expr is a parsed expression node.
type Expr interface {
	base() *ExprBase
}

// ExprBase holds the fields every parsed expression serializes first.
type ExprBase struct {
	Class string `json:"class"`
	Type  string `json:"type"`
	Alias string `json:"alias"`
}

func (b *ExprBase) base() *ExprBase { return b }

// ColumnRefExpr references a (possibly qualified) column.
type ColumnRefExpr struct {
	ExprBase
	ColumnNames []string `json:"column_names"`
}

// LogicalType is a serialized DuckDB logical type.
type LogicalType struct {
	ID       string      `json:"id"`
	TypeInfo interface{} `json:"type_info"`
}

// Value is a serialized DuckDB value.
type Value struct {
	Type   LogicalType `json:"type"`
	IsNull bool        `json:"is_null"`
	Value  interface{} `json:"value,omitempty"`
}

// ConstantExpr is a literal value.
type ConstantExpr struct {
	ExprBase
	Value Value `json:"value"`
}

// ComparisonExpr is a binary comparison.
type ComparisonExpr struct {
	ExprBase
	Left  Expr `json:"left"`
	Right Expr `json:"right"`
}

// ConjunctionExpr is an AND / OR over its children.
type ConjunctionExpr struct {
	ExprBase
	Children []Expr `json:"children"`
}

// OperatorExpr covers IN, NOT IN, NOT, IS NULL and IS NOT NULL.
type OperatorExpr struct {
	ExprBase
	Children []Expr `json:"children"`
}

// BetweenExpr is input BETWEEN lower AND upper.
type BetweenExpr struct {
	ExprBase
	Input Expr `json:"input"`
	Lower Expr `json:"lower"`
	Upper Expr `json:"upper"`
}

// FunctionExpr is a scalar or aggregate function call.
type FunctionExpr struct {
	ExprBase
	FunctionName string         `json:"function_name"`
	Schema       string         `json:"schema"`
	Children     []Expr         `json:"children"`
	Filter       Expr           `json:"filter"`
	OrderBys     *OrderModifier `json:"order_bys"`
	Distinct     bool           `json:"distinct"`
	IsOperator   bool           `json:"is_operator"`
	ExportState  bool           `json:"export_state"`
	Catalog      string         `json:"catalog"`
}

// TableRef is a FROM-clause node.
type TableRef interface {
	tableRef()
}

// TableRefHeader holds the fields every table reference serializes first.
type TableRefHeader struct {
	Type   string      `json:"type"`
	Alias  string      `json:"alias"`
	Sample interface{} `json:"sample"`
}

// BaseTableRef is a named table.
type BaseTableRef struct {
	TableRefHeader
	SchemaName      string   `json:"schema_name"`
	TableName       string   `json:"table_name"`
	ColumnNameAlias []string `json:"column_name_alias"`
	CatalogName     string   `json:"catalog_name"`
}

// JoinRef joins two table references.
type JoinRef struct {
	TableRefHeader
	Left                       TableRef `json:"left"`
	Right                      TableRef `json:"right"`
	Condition                  Expr     `json:"condition"`
	JoinType                   string   `json:"join_type"`
	RefType                    string   `json:"ref_type"`
	UsingColumns               []string `json:"using_columns"`
	DelimFlipped               bool     `json:"delim_flipped"`
	DuplicateEliminatedColumns []Expr   `json:"duplicate_eliminated_columns"`
}

func (*BaseTableRef) tableRef() {}
func (*JoinRef) tableRef()      {}

// ResultModifier is an ORDER BY or LIMIT modifier of a query node.
type ResultModifier interface {
	modifier()
}

// OrderByNode is one ORDER BY term.
type OrderByNode struct {
	Type       string `json:"type"`
	NullOrder  string `json:"null_order"`
	Expression Expr   `json:"expression"`
}

// OrderModifier is an ORDER BY clause.
type OrderModifier struct {
	Type   string        `json:"type"`
	Orders []OrderByNode `json:"orders"`
}

// LimitModifier is a LIMIT / OFFSET clause.
type LimitModifier struct {
	Type   string `json:"type"`
	Limit  Expr   `json:"limit"`
	Offset Expr   `json:"offset"`
}

func (*OrderModifier) modifier() {}
func (*LimitModifier) modifier() {}

// CTEMap is the (always empty) common table expression map.
type CTEMap struct {
	Map []interface{} `json:"map"`
}

// SelectNode is a SELECT query node.
type SelectNode struct {
	Type              string           `json:"type"`
	Modifiers         []ResultModifier `json:"modifiers"`
	CTEMap            CTEMap           `json:"cte_map"`
	SelectList        []Expr           `json:"select_list"`
	FromTable         TableRef         `json:"from_table"`
	WhereClause       Expr             `json:"where_clause"`
	GroupExpressions  []Expr           `json:"group_expressions"`
	GroupSets         [][]int          `json:"group_sets"`
	AggregateHandling string           `json:"aggregate_handling"`
	Having            Expr             `json:"having"`
	Sample            interface{}      `json:"sample"`
	Qualify           Expr             `json:"qualify"`
}

// SelectStatement wraps a query node.
type SelectStatement struct {
	Node *SelectNode `json:"node"`
}

// Payload is the top-level document accepted by json_deserialize_sql.
type Payload struct {
	Error      bool              `json:"error"`
	Statements []SelectStatement `json:"statements"`
}

// ErrorPayload is what json_serialize_sql returns for unparseable SQL.
type ErrorPayload struct {
	Error        bool   `json:"error"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}
