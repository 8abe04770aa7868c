package resolution

import (
	"slices"
	"strings"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

// validateConfig checks cfg against the query and the lookup schemas, and
// normalises lookup column references to "source.field" members.
func validateConfig(q domain.Query, schemas []domain.TableSchema, cfg domain.ResolutionConfig) ([]column, error) {
	for _, m := range cfg.ColumnProjections {
		if !slices.Contains(q.Dimensions, m) && !slices.Contains(q.Measures, m) {
			return nil, domain.ErrResolutionConfig(m, "projected column is not requested by the query")
		}
	}

	seen := map[string]bool{}
	out := make([]column, 0, len(cfg.ColumnConfigs))
	for _, cc := range cfg.ColumnConfigs {
		if seen[cc.Name] {
			return nil, domain.ErrResolutionConfig(cc.Name, "column is configured more than once")
		}
		seen[cc.Name] = true

		if !slices.Contains(q.Dimensions, cc.Name) {
			return nil, domain.ErrResolutionConfig(cc.Name, "column is not a requested dimension")
		}
		def, ok := baseDimension(schemas, cc.Name)
		if !ok {
			return nil, domain.ErrResolutionConfig(cc.Name, "column is not a dimension of the base schemas")
		}
		typ := cc.Type
		if typ == "" {
			typ = def.Type
		}
		if !typ.Valid() {
			return nil, domain.ErrResolutionConfig(cc.Name, "unknown type %q", typ)
		}

		source, ok := cfg.Lookup(cc.Source)
		if !ok {
			return nil, domain.ErrResolutionConfig(cc.Name, "lookup schema %q is not in tableSchemas", cc.Source)
		}
		joinMember, err := lookupMember(cc, source, cc.JoinColumn)
		if err != nil {
			return nil, err
		}
		if len(cc.ResolutionColumns) == 0 {
			return nil, domain.ErrResolutionConfig(cc.Name, "at least one resolution column is required")
		}
		resolve := make([]string, 0, len(cc.ResolutionColumns))
		for _, rc := range cc.ResolutionColumns {
			m, err := lookupMember(cc, source, rc)
			if err != nil {
				return nil, err
			}
			if m == joinMember || slices.Contains(resolve, m) {
				return nil, domain.ErrResolutionConfig(cc.Name, "resolution column %q is repeated", rc)
			}
			resolve = append(resolve, m)
		}

		out = append(out, column{
			cfg:        cc,
			typ:        typ,
			source:     source,
			joinMember: joinMember,
			resolve:    resolve,
		})
	}
	return out, nil
}

// lookupMember accepts "field" or "source.field" and checks that it names a
// dimension of the lookup schema.
func lookupMember(cc domain.ColumnResolutionConfig, source domain.TableSchema, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	field := ref
	if table, f, ok := domain.SplitMember(ref); ok && table == source.Name {
		field = f
	}
	if field == "" {
		return "", domain.ErrResolutionConfig(cc.Name, "lookup column is required")
	}
	if _, ok := source.Dimension(field); !ok {
		return "", domain.ErrResolutionConfig(cc.Name, "%q is not a dimension of lookup schema %q", ref, source.Name)
	}
	return member(source.Name, field), nil
}

func baseDimension(schemas []domain.TableSchema, m string) (domain.MemberDef, bool) {
	table, field, ok := domain.SplitMember(m)
	if !ok {
		return domain.MemberDef{}, false
	}
	for _, s := range schemas {
		if s.Name == table {
			return s.Dimension(field)
		}
	}
	return domain.MemberDef{}, false
}
