// Package resolution replaces coded dimensions of a compiled query with
// descriptive columns from lookup schemas. Each stage compiles a query over
// the previous stage's output wrapped as a new schema: base, then unnest
// for array columns, then the lookup joins.
package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devrev/meerkat-sub004/internal/compiler"
	"github.com/devrev/meerkat-sub004/internal/domain"
)

// Result is the final SQL together with the schema describing its columns.
type Result struct {
	SQL    string
	Schema domain.TableSchema
}

// Pipeline runs resolution on top of a Compiler.
type Pipeline struct {
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(c *compiler.Compiler, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{compiler: c, logger: logger}
}

// CompileWithResolution compiles q and resolves the columns named in cfg.
// With no column configs it is exactly Compile.
func (p *Pipeline) CompileWithResolution(ctx context.Context, q domain.Query, schemas []domain.TableSchema, cfg domain.ResolutionConfig) (string, error) {
	if cfg.IsEmpty() {
		return p.compiler.Compile(ctx, q, schemas)
	}
	res, err := p.Resolve(ctx, q, schemas, cfg)
	if err != nil {
		return "", err
	}
	return res.SQL, nil
}

// column is a validated column config.
type column struct {
	cfg        domain.ColumnResolutionConfig
	typ        domain.MemberType
	source     domain.TableSchema
	joinMember string
	resolve    []string
}

// Resolve runs the full pipeline and returns the final wrapper schema.
func (p *Pipeline) Resolve(ctx context.Context, q domain.Query, schemas []domain.TableSchema, cfg domain.ResolutionConfig) (*Result, error) {
	columns, err := validateConfig(q, schemas, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	base, err := p.compiler.CompileQuery(ctx, q, schemas)
	if err != nil {
		return nil, fmt.Errorf("base query: %w", err)
	}
	current := Wrap(BaseQueryName, base)
	p.logger.Debug("resolution stage", "stage", "base", "duration", time.Since(start))

	if len(columns) == 0 {
		return &Result{SQL: base.SQL, Schema: current}, nil
	}

	aliasOf := make(map[string]string, len(base.Columns))
	for _, c := range base.Columns {
		aliasOf[c.Member] = c.Alias
	}

	if slices.ContainsFunc(columns, func(c column) bool { return c.typ.IsArray() }) {
		start = time.Now()
		current, err = p.unnest(ctx, current, columns, aliasOf)
		if err != nil {
			return nil, fmt.Errorf("unnest stage: %w", err)
		}
		p.logger.Debug("resolution stage", "stage", "unnest", "duration", time.Since(start))
	}

	start = time.Now()
	lookups, err := p.compileLookups(ctx, columns, current.Name, aliasOf)
	if err != nil {
		return nil, fmt.Errorf("lookup stage: %w", err)
	}
	p.logger.Debug("resolution stage", "stage", "lookup", "lookups", len(lookups), "duration", time.Since(start))

	start = time.Now()
	res, err := p.join(ctx, q, cfg, current, columns, lookups, aliasOf)
	if err != nil {
		return nil, fmt.Errorf("resolution stage: %w", err)
	}
	p.logger.Debug("resolution stage", "stage", "join", "duration", time.Since(start))
	return res, nil
}

// unnest recompiles the wrapper with every array-typed resolved column
// projected through unnest(). Names and order of the columns are unchanged.
func (p *Pipeline) unnest(ctx context.Context, wrapper domain.TableSchema, columns []column, aliasOf map[string]string) (domain.TableSchema, error) {
	arrays := map[string]bool{}
	for _, c := range columns {
		if c.typ.IsArray() {
			arrays[aliasOf[c.cfg.Name]] = true
		}
	}

	src := wrapper.Clone()
	q := domain.Query{Dimensions: make([]string, 0, len(src.Dimensions))}
	for i, d := range src.Dimensions {
		if arrays[d.Name] {
			src.Dimensions[i].Modifiers = &domain.Modifiers{ShouldUnnest: true}
		}
		q.Dimensions = append(q.Dimensions, member(src.Name, d.Name))
	}

	res, err := p.compiler.CompileQuery(ctx, q, []domain.TableSchema{src})
	if err != nil {
		return domain.TableSchema{}, err
	}
	out := Wrap(UnnestedQueryName, res)
	for i, d := range out.Dimensions {
		if arrays[d.Name] {
			out.Dimensions[i].Type = d.Type.Element()
		}
	}
	return out, nil
}

// lookup is a compiled lookup schema for one resolved column.
type lookup struct {
	schema domain.TableSchema
	// dims are the resolved dimensions replacing the base column, named
	// "<lookup>.<column>" and aliased for the final projection.
	dims []domain.MemberDef
}

// compileLookups compiles one lookup schema per column concurrently.
func (p *Pipeline) compileLookups(ctx context.Context, columns []column, baseName string, aliasOf map[string]string) ([]lookup, error) {
	out := make([]lookup, len(columns))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range columns {
		g.Go(func() error {
			l, err := p.compileLookup(gctx, c, baseName, aliasOf[c.cfg.Name])
			if err != nil {
				return fmt.Errorf("lookup for %q: %w", c.cfg.Name, err)
			}
			out[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) compileLookup(ctx context.Context, c column, baseName, baseAlias string) (lookup, error) {
	q := domain.Query{Dimensions: append([]string{c.joinMember}, c.resolve...)}
	res, err := p.compiler.CompileQuery(ctx, q, []domain.TableSchema{c.source})
	if err != nil {
		return lookup{}, err
	}

	name := domain.SafeKey(c.cfg.Name)
	schema := Wrap(name, res)
	joinAlias := res.Columns[0].Alias
	schema.Joins = []domain.JoinDef{{
		SQL: columnRef(baseName, baseAlias) + " = " + columnRef(name, joinAlias),
	}}

	dims := make([]domain.MemberDef, 0, len(c.resolve))
	for i, m := range c.resolve {
		col := res.Columns[i+1]
		dims = append(dims, domain.MemberDef{
			Name:  member(name, col.Alias),
			SQL:   schema.Dimensions[i+1].SQL,
			Type:  col.Type,
			Alias: name + "__" + domain.MemberField(m),
		})
		schema.Dimensions[i+1].Alias = dims[i].Alias
	}
	return lookup{schema: schema, dims: dims}, nil
}

// join compiles the final query: the wrapper's columns in order, with each
// resolved column replaced by its lookup columns.
func (p *Pipeline) join(ctx context.Context, q domain.Query, cfg domain.ResolutionConfig, wrapper domain.TableSchema, columns []column, lookups []lookup, aliasOf map[string]string) (*Result, error) {
	dims := projectedDimensions(wrapper.Dimensions, cfg.ColumnProjections, aliasOf)
	projected := make(map[string]bool, len(dims))
	for _, d := range dims {
		projected[d.Name] = true
	}

	resolvedBy := make(map[string][]domain.MemberDef, len(columns))
	schemas := []domain.TableSchema{wrapper}
	final := domain.Query{}
	for i, c := range columns {
		alias := aliasOf[c.cfg.Name]
		if !projected[alias] {
			continue
		}
		l := lookups[i]
		resolvedBy[alias] = l.dims
		schemas = append(schemas, l.schema)
		final.JoinPaths = append(final.JoinPaths, domain.JoinPath{{
			Left:  wrapper.Name,
			Right: l.schema.Name,
			On:    alias,
		}})
	}

	firstOf := map[string]string{}
	for _, d := range dims {
		if repl, ok := resolvedBy[d.Name]; ok {
			for _, r := range repl {
				final.Dimensions = append(final.Dimensions, r.Name)
			}
			firstOf[d.Name] = repl[0].Name
			continue
		}
		m := member(wrapper.Name, d.Name)
		final.Dimensions = append(final.Dimensions, m)
		firstOf[d.Name] = m
	}
	for _, o := range q.Order {
		if m, ok := firstOf[aliasOf[o.Member]]; ok {
			final.Order = append(final.Order, domain.OrderBy{Member: m, Direction: o.Direction})
		}
	}

	res, err := p.compiler.CompileQuery(ctx, final, schemas)
	if err != nil {
		return nil, err
	}

	finalResolved := make(map[string][]domain.MemberDef, len(resolvedBy))
	for name, repl := range resolvedBy {
		defs := make([]domain.MemberDef, len(repl))
		for i, r := range repl {
			defs[i] = domain.MemberDef{Name: r.Alias, SQL: columnRef(ResolvedQueryName, r.Alias), Type: r.Type, Alias: r.Alias}
		}
		finalResolved[name] = defs
	}
	return &Result{
		SQL: res.SQL,
		Schema: domain.TableSchema{
			Name:       ResolvedQueryName,
			SQL:        res.SQL,
			Measures:   []domain.MemberDef{},
			Dimensions: SubstituteDimensions(dims, finalResolved, ResolvedQueryName),
		},
	}, nil
}

// projectedDimensions narrows the wrapper's dimensions to the projected base
// members, keeping wrapper order. No projections keeps every dimension.
func projectedDimensions(dims []domain.MemberDef, projections []string, aliasOf map[string]string) []domain.MemberDef {
	if len(projections) == 0 {
		return dims
	}
	keep := make(map[string]bool, len(projections))
	for _, m := range projections {
		keep[aliasOf[m]] = true
	}
	out := make([]domain.MemberDef, 0, len(projections))
	for _, d := range dims {
		if keep[d.Name] {
			out = append(out, d)
		}
	}
	return out
}
