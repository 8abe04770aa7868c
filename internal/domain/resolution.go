package domain

// ColumnResolutionConfig names a base-query column whose codes are replaced
// by descriptive columns of a lookup schema.
type ColumnResolutionConfig struct {
	// Name is the base query member, e.g. "issues.owners".
	Name string `json:"name"`
	// Type is the member type; array types are unnested before the join.
	Type MemberType `json:"type"`
	// Source is the lookup schema name in ResolutionConfig.TableSchemas.
	Source string `json:"source"`
	// JoinColumn is the lookup dimension matched against the code.
	JoinColumn string `json:"joinColumn"`
	// ResolutionColumns are the lookup dimensions exposed in place of the code.
	ResolutionColumns []string `json:"resolutionColumns"`
}

// ResolutionConfig drives the resolution pipeline.
type ResolutionConfig struct {
	ColumnConfigs []ColumnResolutionConfig `json:"columnConfigs"`
	TableSchemas  []TableSchema            `json:"tableSchemas,omitempty"`
	// ColumnProjections narrows the final projection to these base members.
	ColumnProjections []string `json:"columnProjections,omitempty"`
}

// IsEmpty reports whether no column needs resolution.
func (c ResolutionConfig) IsEmpty() bool {
	return len(c.ColumnConfigs) == 0
}

// Lookup returns the lookup schema named name.
func (c ResolutionConfig) Lookup(name string) (TableSchema, bool) {
	for _, s := range c.TableSchemas {
		if s.Name == name {
			return s, true
		}
	}
	return TableSchema{}, false
}
