package domain

import (
	"strings"
)

// Order directions.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// JoinNode is one equi-join edge between two schemas.
type JoinNode struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	On    string `json:"on"`
}

// JoinPath is an ordered chain of join edges.
type JoinPath []JoinNode

// OrderBy sorts the result by a projected member.
type OrderBy struct {
	Member    string `json:"member"`
	Direction string `json:"direction,omitempty"`
}

// Query is a semantic query. Members are namespaced "table.field" strings.
type Query struct {
	Measures   []string   `json:"measures"`
	Dimensions []string   `json:"dimensions"`
	Filters    Filters    `json:"filters,omitempty"`
	JoinPaths  []JoinPath `json:"joinPaths,omitempty"`
	Order      []OrderBy  `json:"order,omitempty"`
	Limit      *int64     `json:"limit,omitempty"`
	Offset     *int64     `json:"offset,omitempty"`
}

// IsEmpty reports whether the query projects nothing. Callers short-circuit
// empty queries; the compiler does not.
func (q Query) IsEmpty() bool {
	return len(q.Measures) == 0 && len(q.Dimensions) == 0
}

// Tables returns the schema names the query mentions, in first-seen order.
func (q Query) Tables() []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, m := range q.Dimensions {
		add(MemberTable(m))
	}
	for _, m := range q.Measures {
		add(MemberTable(m))
	}
	for _, f := range q.Filters {
		WalkLeaves(f, func(l *LeafFilter) { add(MemberTable(l.Member)) })
	}
	for _, o := range q.Order {
		add(MemberTable(o.Member))
	}
	for _, path := range q.JoinPaths {
		for _, n := range path {
			add(n.Left)
			add(n.Right)
		}
	}
	return out
}

// SplitMember splits "table.field" into its parts. The field may itself
// contain dots; only the first one separates the table.
func SplitMember(member string) (table, field string, ok bool) {
	table, field, ok = strings.Cut(strings.TrimSpace(member), ".")
	if !ok || table == "" || field == "" {
		return "", "", false
	}
	return table, field, true
}

// MemberTable returns the table part of a member, or "".
func MemberTable(member string) string {
	t, _, _ := SplitMember(member)
	return t
}

// MemberField returns the member with its table qualifier stripped.
func MemberField(member string) string {
	if _, f, ok := SplitMember(member); ok {
		return f
	}
	return member
}

// SafeKey turns "table.field" into the identifier-safe "table__field" used
// as the default output column name.
func SafeKey(member string) string {
	return strings.ReplaceAll(member, ".", "__")
}
