// Package dedupe drops outer-query filters that a base query already
// enforces.
//
// The check is textual: it looks for "field IN (...)" and "field = 'value'"
// predicates in the base SQL, anchored on the exact field name. Keeping a
// redundant filter is always safe. Known gaps remain: the match does not
// know which table or which branch of an OR the base predicate belongs to,
// it does not see an enclosing NOT, so "NOT (status = 'a')" counts as
// enforcing status = 'a', and dropping an enforced child of an "or" narrows
// that "or".
package dedupe

import (
	"regexp"
	"slices"
	"strings"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

// DedupeFilters returns filters without the leaves baseSQL already enforces.
// and/or nodes keep their surviving children and vanish when none survive.
// The input is not modified.
func DedupeFilters(filters domain.Filters, baseSQL string) domain.Filters {
	out := domain.Filters{}
	for _, f := range filters {
		if kept := dedupe(f, baseSQL); kept != nil {
			out = append(out, kept)
		}
	}
	return out
}

func dedupe(f domain.Filter, baseSQL string) domain.Filter {
	switch n := f.(type) {
	case *domain.LeafFilter:
		if Enforced(n, baseSQL) {
			return nil
		}
		return n
	case *domain.AndFilter:
		children := DedupeFilters(n.And, baseSQL)
		if len(children) == 0 {
			return nil
		}
		return &domain.AndFilter{And: children}
	case *domain.OrFilter:
		children := DedupeFilters(n.Or, baseSQL)
		if len(children) == 0 {
			return nil
		}
		return &domain.OrFilter{Or: children}
	default:
		return f
	}
}

// Enforced reports whether baseSQL restricts the leaf's field to a value set
// contained in the leaf's values. Only equals and in are considered.
func Enforced(leaf *domain.LeafFilter, baseSQL string) bool {
	if leaf.Operator != domain.OpEquals && leaf.Operator != domain.OpIn {
		return false
	}
	if len(leaf.Values) == 0 {
		return false
	}
	field := domain.MemberField(leaf.Member)
	for _, set := range enforcedSets(field, baseSQL) {
		if subset(set, leaf.Values) {
			return true
		}
	}
	return false
}

// enforcedSets collects the value lists the base SQL pins field to.
func enforcedSets(field, sql string) [][]string {
	name := `(?:^|[^A-Za-z0-9_$"])"?` + regexp.QuoteMeta(field) + `"?`
	inPattern := regexp.MustCompile(`(?i)` + name + `\s+IN\s*\(([^()]*)\)`)
	eqPattern := regexp.MustCompile(`(?i)` + name + `\s*=\s*('(?:[^']|'')*'|-?[0-9]+(?:\.[0-9]+)?)`)

	var sets [][]string
	for _, m := range inPattern.FindAllStringSubmatch(sql, -1) {
		if values, ok := parseList(m[1]); ok {
			sets = append(sets, values)
		}
	}
	for _, m := range eqPattern.FindAllStringSubmatch(sql, -1) {
		if values, ok := parseList(m[1]); ok {
			sets = append(sets, values)
		}
	}
	return sets
}

// parseList splits "'a', 'b''c', 3" into its literal values. It fails on
// anything that is not a quoted string or a plain number.
func parseList(s string) ([]string, bool) {
	var out []string
	s = strings.TrimSpace(s)
	for s != "" {
		var v string
		if s[0] == '\'' {
			end := closingQuote(s)
			if end < 0 {
				return nil, false
			}
			v = strings.ReplaceAll(s[1:end], "''", "'")
			s = s[end+1:]
		} else {
			i := strings.IndexByte(s, ',')
			if i < 0 {
				i = len(s)
			}
			v = strings.TrimSpace(s[:i])
			if !number.MatchString(v) {
				return nil, false
			}
			s = s[i:]
		}
		out = append(out, v)
		s = strings.TrimSpace(s)
		if s == "" {
			break
		}
		if s[0] != ',' {
			return nil, false
		}
		s = strings.TrimSpace(s[1:])
	}
	return out, len(out) > 0
}

var number = regexp.MustCompile(`^-?[0-9]+(?:\.[0-9]+)?$`)

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

func subset(set, values []string) bool {
	for _, v := range set {
		if !slices.Contains(values, v) {
			return false
		}
	}
	return true
}
