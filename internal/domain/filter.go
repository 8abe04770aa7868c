package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Filter operators.
const (
	OpEquals         = "equals"
	OpNotEquals      = "notEquals"
	OpIn             = "in"
	OpNotIn          = "notIn"
	OpContains       = "contains"
	OpNotContains    = "notContains"
	OpGt             = "gt"
	OpGte            = "gte"
	OpLt             = "lt"
	OpLte            = "lte"
	OpSet            = "set"
	OpNotSet         = "notSet"
	OpInDateRange    = "inDateRange"
	OpNotInDateRange = "notInDateRange"
)

// Filter is a recursive filter specification.
//
// This is a sealed interface: only *LeafFilter, *AndFilter and *OrFilter
// implement it, so type switches over it are exhaustive.
type Filter interface {
	filterNode()
}

// LeafFilter compares one member against a list of values.
type LeafFilter struct {
	Member   string   `json:"member"`
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

// AndFilter holds when every child holds.
type AndFilter struct {
	And Filters `json:"and"`
}

// OrFilter holds when any child holds.
type OrFilter struct {
	Or Filters `json:"or"`
}

func (*LeafFilter) filterNode() {}
func (*AndFilter) filterNode()  {}
func (*OrFilter) filterNode()   {}

// Filters is a list of filters with a JSON codec for the tagged-union wire shape.
type Filters []Filter

// UnmarshalJSON decodes a JSON array of filter objects.
func (fs *Filters) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*fs = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("filters must be an array: %w", err)
	}
	out := make(Filters, 0, len(raws))
	for i, raw := range raws {
		f, err := DecodeFilter(raw)
		if err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
		out = append(out, f)
	}
	*fs = out
	return nil
}

// DecodeFilter decodes one filter object: {member, operator, values} or
// {and: [...]} or {or: [...]}.
func DecodeFilter(data []byte) (Filter, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("filter must be an object: %w", err)
	}
	_, hasAnd := probe["and"]
	_, hasOr := probe["or"]
	_, hasMember := probe["member"]

	switch {
	case hasAnd && !hasOr && !hasMember:
		var children Filters
		if err := json.Unmarshal(probe["and"], &children); err != nil {
			return nil, err
		}
		return &AndFilter{And: children}, nil
	case hasOr && !hasAnd && !hasMember:
		var children Filters
		if err := json.Unmarshal(probe["or"], &children); err != nil {
			return nil, err
		}
		return &OrFilter{Or: children}, nil
	case hasMember && !hasAnd && !hasOr:
		leaf := &LeafFilter{}
		if err := json.Unmarshal(probe["member"], &leaf.Member); err != nil {
			return nil, fmt.Errorf("member: %w", err)
		}
		if raw, ok := probe["operator"]; ok {
			if err := json.Unmarshal(raw, &leaf.Operator); err != nil {
				return nil, fmt.Errorf("operator: %w", err)
			}
		}
		if raw, ok := probe["values"]; ok {
			values, err := decodeValues(raw)
			if err != nil {
				return nil, err
			}
			leaf.Values = values
		}
		return leaf, nil
	default:
		return nil, ErrValidation("filter must have exactly one of member, and, or")
	}
}

// decodeValues accepts strings, numbers and booleans and keeps their textual
// form. Numbers keep the literal digits from the payload.
func decodeValues(raw json.RawMessage) ([]string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("values must be an array: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, err
			}
			out = append(out, s)
			continue
		}
		var v interface{}
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, err
		}
		switch v.(type) {
		case float64, bool:
			out = append(out, string(item))
		default:
			return nil, ErrValidation("filter values must be strings, numbers or booleans, got %s", string(item))
		}
	}
	return out, nil
}

// WalkLeaves calls fn for every leaf of f in depth-first order.
func WalkLeaves(f Filter, fn func(*LeafFilter)) {
	switch n := f.(type) {
	case *LeafFilter:
		fn(n)
	case *AndFilter:
		for _, c := range n.And {
			WalkLeaves(c, fn)
		}
	case *OrFilter:
		for _, c := range n.Or {
			WalkLeaves(c, fn)
		}
	}
}

// FilterString renders a filter for log lines and error messages.
func FilterString(f Filter) string {
	switch n := f.(type) {
	case *LeafFilter:
		return fmt.Sprintf("%s %s [%s]", n.Member, n.Operator, strings.Join(n.Values, ", "))
	case *AndFilter:
		return "and(" + joinFilters(n.And) + ")"
	case *OrFilter:
		return "or(" + joinFilters(n.Or) + ")"
	default:
		return "<nil>"
	}
}

func joinFilters(fs Filters) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = FilterString(f)
	}
	return strings.Join(parts, ", ")
}
