package domain

import (
	"strings"
)

// MemberType is the declared data type of a measure or dimension.
type MemberType string

// Member types understood by the filter builder.
const (
	TypeString      MemberType = "string"
	TypeNumber      MemberType = "number"
	TypeBoolean     MemberType = "boolean"
	TypeTime        MemberType = "time"
	TypeStringArray MemberType = "string_array"
	TypeNumberArray MemberType = "number_array"
)

// IsArray reports whether the type holds a list of values per row.
func (t MemberType) IsArray() bool {
	return strings.HasSuffix(string(t), "_array")
}

// Element returns the scalar type of an array type, or t itself.
func (t MemberType) Element() MemberType {
	if !t.IsArray() {
		return t
	}
	return MemberType(strings.TrimSuffix(string(t), "_array"))
}

// Valid reports whether t is one of the known member types. The empty type is
// accepted and treated as string.
func (t MemberType) Valid() bool {
	switch t {
	case "", TypeString, TypeNumber, TypeBoolean, TypeTime, TypeStringArray, TypeNumberArray:
		return true
	}
	return false
}

// Modifiers alter how a member is projected.
type Modifiers struct {
	ShouldUnnest bool `json:"shouldUnnest,omitempty"`
}

// MemberDef describes a measure or a dimension of a table schema.
type MemberDef struct {
	Name      string     `json:"name"`
	SQL       string     `json:"sql"`
	Type      MemberType `json:"type"`
	Alias     string     `json:"alias,omitempty"`
	Modifiers *Modifiers `json:"modifiers,omitempty"`
}

// ShouldUnnest reports whether the member is projected through unnest().
func (m MemberDef) ShouldUnnest() bool {
	return m.Modifiers != nil && m.Modifiers.ShouldUnnest
}

// JoinDef is an opaque join condition declared on a schema,
// e.g. "orders.customer_id = customers.id".
type JoinDef struct {
	SQL string `json:"sql"`
}

// TableSchema is the queryable surface of one table.
type TableSchema struct {
	Name       string      `json:"name"`
	SQL        string      `json:"sql"`
	Measures   []MemberDef `json:"measures"`
	Dimensions []MemberDef `json:"dimensions"`
	Joins      []JoinDef   `json:"joins,omitempty"`
}

// Measure returns the measure named name.
func (s TableSchema) Measure(name string) (MemberDef, bool) {
	for _, m := range s.Measures {
		if m.Name == name {
			return m, true
		}
	}
	return MemberDef{}, false
}

// Dimension returns the dimension named name.
func (s TableSchema) Dimension(name string) (MemberDef, bool) {
	for _, d := range s.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return MemberDef{}, false
}

// Validate checks the structural invariants of a schema.
func (s TableSchema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrValidation("schema name is required")
	}
	if strings.Contains(s.Name, ".") {
		return ErrValidation("schema name %q must not contain '.'", s.Name)
	}
	if strings.TrimSpace(s.SQL) == "" {
		return ErrValidation("schema %q: sql is required", s.Name)
	}
	seen := make(map[string]bool, len(s.Measures)+len(s.Dimensions))
	check := func(kind string, defs []MemberDef) error {
		for _, d := range defs {
			if strings.TrimSpace(d.Name) == "" {
				return ErrValidation("schema %q: %s name is required", s.Name, kind)
			}
			if strings.TrimSpace(d.SQL) == "" {
				return ErrValidation("schema %q: %s %q has empty sql", s.Name, kind, d.Name)
			}
			if !d.Type.Valid() {
				return ErrValidation("schema %q: %s %q has unknown type %q", s.Name, kind, d.Name, d.Type)
			}
			if seen[d.Name] {
				return ErrValidation("schema %q: member %q is defined twice", s.Name, d.Name)
			}
			seen[d.Name] = true
		}
		return nil
	}
	if err := check("measure", s.Measures); err != nil {
		return err
	}
	return check("dimension", s.Dimensions)
}

// Clone returns a deep copy so that derived schemas never share slices with
// their inputs.
func (s TableSchema) Clone() TableSchema {
	out := s
	out.Measures = cloneDefs(s.Measures)
	out.Dimensions = cloneDefs(s.Dimensions)
	if s.Joins != nil {
		out.Joins = append([]JoinDef(nil), s.Joins...)
	}
	return out
}

func cloneDefs(defs []MemberDef) []MemberDef {
	if defs == nil {
		return nil
	}
	out := make([]MemberDef, len(defs))
	for i, d := range defs {
		out[i] = d
		if d.Modifiers != nil {
			m := *d.Modifiers
			out[i].Modifiers = &m
		}
	}
	return out
}
