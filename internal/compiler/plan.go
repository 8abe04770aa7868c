package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/duckast"
	"github.com/devrev/meerkat-sub004/internal/filter"
)

// Column is one projected output column of a compiled query.
type Column struct {
	Member  string            `json:"member"`
	Alias   string            `json:"alias"`
	Type    domain.MemberType `json:"type"`
	Measure bool              `json:"measure"`
}

// Substitution replaces a placeholder identifier in the engine's SQL output.
type Substitution struct {
	Token string
	SQL   string
}

// Plan is the engine-independent result of planning a query: the SELECT
// AST with placeholder identifiers and the text that replaces them.
type Plan struct {
	AST           *duckast.SelectNode
	Substitutions []Substitution
	Columns       []Column
	// Tables lists the joined schemas in FROM order.
	Tables []string
}

var (
	placeholderPattern = regexp.MustCompile(`__(table|member|join)_[0-9]+__`)
	identifierPath     = regexp.MustCompile(`^(?:[A-Za-z_][A-Za-z0-9_$]*|"(?:[^"]|"")+")(?:\.(?:[A-Za-z_][A-Za-z0-9_$]*|"(?:[^"]|"")+"))*$`)
)

type planner struct {
	query   domain.Query
	schemas map[string]domain.TableSchema

	subs     []Substitution
	tables   map[string]string
	members  map[string]string
	nTables  int
	nMembers int
	nJoins   int
}

// resolved is a member looked up in its schema.
type resolved struct {
	member  string
	def     domain.MemberDef
	measure bool
}

// BuildPlan validates q against schemas and builds its SELECT AST without
// touching the engine. It is pure: equal inputs give equal plans.
func BuildPlan(q domain.Query, schemas []domain.TableSchema) (*Plan, error) {
	p := &planner{
		query:   q,
		schemas: make(map[string]domain.TableSchema, len(schemas)),
		tables:  map[string]string{},
		members: map[string]string{},
	}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := p.schemas[s.Name]; dup {
			return nil, domain.ErrValidation("schema %q is supplied more than once", s.Name)
		}
		p.schemas[s.Name] = s
	}
	if q.IsEmpty() {
		return nil, domain.ErrValidation("query must request at least one measure or dimension")
	}
	return p.build()
}

func (p *planner) build() (*Plan, error) {
	q := p.query

	dims, err := p.resolveAll(q.Dimensions, "dimension", false)
	if err != nil {
		return nil, err
	}
	measures, err := p.resolveAll(q.Measures, "measure", true)
	if err != nil {
		return nil, err
	}

	where, having, err := p.splitFilters(q.Filters)
	if err != nil {
		return nil, err
	}

	from, joined, err := p.buildFrom()
	if err != nil {
		return nil, err
	}
	for _, table := range q.Tables() {
		if _, known := p.schemas[table]; known && !joined[table] {
			return nil, domain.ErrValidation("table %q is not connected to %q by any join path", table, p.rootTable())
		}
	}

	node := duckast.NewSelect()
	node.FromTable = from

	columns := make([]Column, 0, len(dims)+len(measures))
	aliases := map[string]string{}
	var groupBy []duckast.Expr
	for _, r := range append(append([]resolved{}, dims...), measures...) {
		alias := r.def.Alias
		if alias == "" {
			alias = domain.SafeKey(r.member)
		}
		if prev, dup := aliases[alias]; dup {
			return nil, domain.ErrValidation("members %q and %q both project column %q", prev, r.member, alias)
		}
		aliases[alias] = r.member

		ref := p.memberRef(r)
		var proj duckast.Expr = ref
		if r.def.ShouldUnnest() {
			if len(measures) > 0 || having != nil {
				return nil, domain.ErrValidation("dimension %q cannot be unnested in an aggregated query", r.member)
			}
			proj = duckast.Function("unnest", ref)
		}
		node.SelectList = append(node.SelectList, duckast.WithAlias(proj, alias))
		if !r.measure {
			groupBy = append(groupBy, p.memberRef(r))
		}
		columns = append(columns, Column{Member: r.member, Alias: alias, Type: r.def.Type, Measure: r.measure})
	}

	node.WhereClause = where
	node.Having = having
	if len(measures) > 0 || having != nil {
		node.GroupByAll(groupBy)
	}

	if len(q.Order) > 0 {
		terms := make([]duckast.OrderByNode, 0, len(q.Order))
		byMember := map[string]string{}
		for _, c := range columns {
			byMember[c.Member] = c.Alias
		}
		for _, o := range q.Order {
			alias, ok := byMember[o.Member]
			if !ok {
				if _, err := p.resolve(o.Member, "order"); err != nil {
					return nil, err
				}
				return nil, domain.ErrValidation("order member %q must be projected", o.Member)
			}
			var desc bool
			switch strings.ToLower(o.Direction) {
			case "", domain.OrderAsc:
			case domain.OrderDesc:
				desc = true
			default:
				return nil, domain.ErrValidation("order direction for %q must be asc or desc, got %q", o.Member, o.Direction)
			}
			terms = append(terms, duckast.OrderTerm(duckast.ColumnRef(alias), desc))
		}
		node.Modifiers = append(node.Modifiers, duckast.OrderBy(terms...))
	}

	if q.Limit != nil || q.Offset != nil {
		var limit, offset duckast.Expr
		if q.Limit != nil {
			if *q.Limit < 0 {
				return nil, domain.ErrValidation("limit must not be negative")
			}
			limit = duckast.Integer(*q.Limit)
		}
		if q.Offset != nil {
			if *q.Offset < 0 {
				return nil, domain.ErrValidation("offset must not be negative")
			}
			offset = duckast.Integer(*q.Offset)
		}
		node.Modifiers = append(node.Modifiers, duckast.Limit(limit, offset))
	}

	return &Plan{
		AST:           node,
		Substitutions: p.subs,
		Columns:       columns,
		Tables:        joinedOrder(from),
	}, nil
}

func (p *planner) resolveAll(members []string, kind string, measure bool) ([]resolved, error) {
	out := make([]resolved, 0, len(members))
	seen := map[string]bool{}
	for _, m := range members {
		r, err := p.resolve(m, kind)
		if err != nil {
			return nil, err
		}
		if r.measure != measure {
			return nil, &domain.UnknownMemberError{Member: m, Kind: kind}
		}
		if seen[m] {
			return nil, domain.ErrValidation("%s %q is requested more than once", kind, m)
		}
		seen[m] = true
		out = append(out, r)
	}
	return out, nil
}

func (p *planner) resolve(member, kind string) (resolved, error) {
	table, field, ok := domain.SplitMember(member)
	if !ok {
		return resolved{}, &domain.UnknownMemberError{Member: member, Kind: kind}
	}
	s, ok := p.schemas[table]
	if !ok {
		return resolved{}, &domain.UnknownMemberError{Member: member, Kind: kind}
	}
	if d, ok := s.Dimension(field); ok {
		return resolved{member: member, def: d}, nil
	}
	if m, ok := s.Measure(field); ok {
		return resolved{member: member, def: m, measure: true}, nil
	}
	return resolved{}, &domain.UnknownMemberError{Member: member, Kind: kind}
}

// memberRef returns a fresh reference to the placeholder standing for the
// member's SQL. Each member gets one placeholder however often it is used.
func (p *planner) memberRef(r resolved) *duckast.ColumnRefExpr {
	token, ok := p.members[r.member]
	if !ok {
		token = fmt.Sprintf("__member_%d__", p.nMembers)
		p.nMembers++
		p.members[r.member] = token
		p.subs = append(p.subs, Substitution{Token: token, SQL: wrapExpr(r.def.SQL)})
	}
	return duckast.ColumnRef(token)
}

func (p *planner) tableRef(name string) *duckast.BaseTableRef {
	token, ok := p.tables[name]
	if !ok {
		token = fmt.Sprintf("__table_%d__", p.nTables)
		p.nTables++
		p.tables[name] = token
		p.subs = append(p.subs, Substitution{Token: token, SQL: "(" + strings.TrimSpace(p.schemas[name].SQL) + ")"})
	}
	return duckast.BaseTable(token, name)
}

// splitFilters routes each top-level filter to WHERE or HAVING depending on
// whether it constrains dimensions or measures.
func (p *planner) splitFilters(filters domain.Filters) (where, having duckast.Expr, err error) {
	var dimFilters, measureFilters domain.Filters
	for _, f := range filters {
		var hasDim, hasMeasure bool
		var walkErr error
		domain.WalkLeaves(f, func(l *domain.LeafFilter) {
			if walkErr != nil {
				return
			}
			r, err := p.resolve(l.Member, "filter")
			if err != nil {
				walkErr = err
				return
			}
			for _, v := range l.Values {
				if placeholderPattern.MatchString(v) {
					walkErr = domain.ErrValidation("filter value %q on %q is reserved", v, l.Member)
					return
				}
			}
			if r.measure {
				hasMeasure = true
			} else {
				hasDim = true
			}
		})
		if walkErr != nil {
			return nil, nil, walkErr
		}
		switch {
		case hasDim && hasMeasure:
			return nil, nil, domain.ErrValidation("filter %s mixes dimensions and measures", domain.FilterString(f))
		case hasMeasure:
			measureFilters = append(measureFilters, f)
		default:
			dimFilters = append(dimFilters, f)
		}
	}

	resolve := func(member string) (filter.Column, error) {
		r, err := p.resolve(member, "filter")
		if err != nil {
			return filter.Column{}, err
		}
		return filter.Column{Expr: p.memberRef(r), Type: r.def.Type}, nil
	}
	if where, err = filter.BuildAll(dimFilters, resolve); err != nil {
		return nil, nil, err
	}
	if having, err = filter.BuildAll(measureFilters, resolve); err != nil {
		return nil, nil, err
	}
	return where, having, nil
}

func (p *planner) rootTable() string {
	if len(p.query.JoinPaths) > 0 && len(p.query.JoinPaths[0]) > 0 {
		return p.query.JoinPaths[0][0].Left
	}
	if tables := p.query.Tables(); len(tables) > 0 {
		return tables[0]
	}
	return ""
}

// buildFrom joins the root table with every edge of every join path in
// order. Edges whose tables are both already joined are skipped.
func (p *planner) buildFrom() (duckast.TableRef, map[string]bool, error) {
	root := p.rootTable()
	if _, ok := p.schemas[root]; !ok {
		return nil, nil, domain.ErrValidation("join path starts at unknown table %q", root)
	}
	var from duckast.TableRef = p.tableRef(root)
	joined := map[string]bool{root: true}

	for i, path := range p.query.JoinPaths {
		for j, edge := range path {
			for _, name := range []string{edge.Left, edge.Right} {
				if _, ok := p.schemas[name]; !ok {
					return nil, nil, domain.ErrValidation("join path %d step %d references unknown table %q", i, j, name)
				}
			}
			var next string
			switch {
			case joined[edge.Left] && joined[edge.Right]:
				continue
			case joined[edge.Left]:
				next = edge.Right
			case joined[edge.Right]:
				next = edge.Left
			default:
				return nil, nil, domain.ErrValidation("join path %d step %d (%s -> %s) is not connected to %q", i, j, edge.Left, edge.Right, root)
			}
			cond, err := p.joinCondition(edge)
			if err != nil {
				return nil, nil, err
			}
			from = duckast.Join(from, p.tableRef(next), cond, duckast.JoinLeft)
			joined[next] = true
		}
	}
	return from, joined, nil
}

// joinCondition prefers a join declared on either schema that mentions both
// tables (and the edge's column, when given), falling back to an equi-join
// on the edge's column.
func (p *planner) joinCondition(edge domain.JoinNode) (duckast.Expr, error) {
	candidates := append(append([]domain.JoinDef{}, p.schemas[edge.Left].Joins...), p.schemas[edge.Right].Joins...)
	for _, j := range candidates {
		if !mentionsTable(j.SQL, edge.Left) || !mentionsTable(j.SQL, edge.Right) {
			continue
		}
		if edge.On != "" && !mentionsWord(j.SQL, edge.On) {
			continue
		}
		token := fmt.Sprintf("__join_%d__", p.nJoins)
		p.nJoins++
		p.subs = append(p.subs, Substitution{Token: token, SQL: "(" + strings.TrimSpace(j.SQL) + ")"})
		return duckast.ColumnRef(token), nil
	}
	if edge.On == "" {
		return nil, domain.ErrValidation("no join declared between %q and %q and the join path gives no column", edge.Left, edge.Right)
	}
	return duckast.Equal(duckast.ColumnRef(edge.Left, edge.On), duckast.ColumnRef(edge.Right, edge.On)), nil
}

func mentionsTable(sql, table string) bool {
	return regexp.MustCompile(`(?i)(^|[^A-Za-z0-9_."])"?` + regexp.QuoteMeta(table) + `"?\.`).MatchString(sql)
}

func mentionsWord(sql, word string) bool {
	return regexp.MustCompile(`(?i)(^|[^A-Za-z0-9_])` + regexp.QuoteMeta(word) + `($|[^A-Za-z0-9_])`).MatchString(sql)
}

// wrapExpr parenthesises member SQL unless it is a plain identifier path.
func wrapExpr(sql string) string {
	sql = strings.TrimSpace(sql)
	if identifierPath.MatchString(sql) {
		return sql
	}
	return "(" + sql + ")"
}

func joinedOrder(t duckast.TableRef) []string {
	switch n := t.(type) {
	case *duckast.BaseTableRef:
		return []string{n.Alias}
	case *duckast.JoinRef:
		return append(joinedOrder(n.Left), joinedOrder(n.Right)...)
	}
	return nil
}
