// Package suite compiles configured schemas into a schema registry.
//
// Query schemas read through a Source with the partition key bound to every
// ? placeholder. Merge schemas read by joining the instances of two other
// schemas for the same key, so they are compiled after their inputs.
package suite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapqa/internal/config"
	"github.com/leapstack-labs/leapqa/internal/dag"
	"github.com/leapstack-labs/leapqa/pkg/adapter"
	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/partition"
	"github.com/leapstack-labs/leapqa/pkg/schema"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// Source runs schema queries. adapter.Adapter implements it.
type Source interface {
	ReadTable(ctx context.Context, name, query string, args ...any) (*table.Table, error)
}

// Suite is the set of schemas declared in a project.
type Suite struct {
	registry *schema.Registry
	graph    *dag.Graph[config.SchemaConfig]
	order    []string
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to every compiled schema.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Build compiles every configured schema. Errors from independent schemas
// are joined; a schema whose inputs failed is skipped.
func Build(cfgs []config.SchemaConfig, src Source, opts ...Option) (*Suite, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	g := dag.New[config.SchemaConfig]()
	for _, c := range cfgs {
		if _, dup := g.Get(c.Name); dup {
			return nil, &schema.ConfigError{Schema: c.Name, Err: schema.ErrDuplicateSchema}
		}
		g.Add(c.Name, c)
	}
	for _, c := range cfgs {
		if c.Merge == nil {
			continue
		}
		for _, dep := range []string{c.Merge.Left, c.Merge.Right} {
			if err := g.DependsOn(c.Name, dep); err != nil {
				return nil, &schema.ConfigError{Schema: c.Name, Err: err}
			}
		}
	}
	order, err := g.Sort()
	if err != nil {
		return nil, err
	}

	s := &Suite{registry: schema.NewRegistry(), graph: g, order: order}
	failed := make(map[string]bool)
	var errs []error
	for _, name := range order {
		c, _ := g.Get(name)
		if dep := failedDependency(g, failed, name); dep != "" {
			failed[name] = true
			o.logger.Debug("skipping schema", slog.String("schema", name), slog.String("failed_input", dep))
			continue
		}
		def, err := s.definition(c, src)
		if err == nil {
			_, err = s.registry.Register(def, schema.WithLogger(o.logger))
		}
		if err != nil {
			failed[name] = true
			errs = append(errs, err)
			continue
		}
		o.logger.Debug("registered schema", slog.String("schema", name))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func failedDependency(g *dag.Graph[config.SchemaConfig], failed map[string]bool, name string) string {
	for _, dep := range g.Dependencies(name) {
		if failed[dep] {
			return dep
		}
	}
	return ""
}

// Registry returns the registry holding the compiled schemas.
func (s *Suite) Registry() *schema.Registry { return s.registry }

// Names returns schema names with inputs before the schemas merging them.
func (s *Suite) Names() []string {
	return append([]string(nil), s.order...)
}

// Schemas returns the named schemas in dependency order, or every schema
// when no name is given.
func (s *Suite) Schemas(names ...string) ([]*schema.Schema, error) {
	if len(names) == 0 {
		names = s.order
	}
	out := make([]*schema.Schema, 0, len(names))
	for _, n := range names {
		sc, err := s.registry.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// Inputs returns the names of the schemas that name reads from, transitively,
// followed by name itself.
func (s *Suite) Inputs(name string) ([]string, error) {
	return s.graph.Upstream(name)
}

func (s *Suite) definition(c config.SchemaConfig, src Source) (schema.Definition, error) {
	fail := func(err error) (schema.Definition, error) {
		return schema.Definition{}, &schema.ConfigError{Schema: c.Name, Err: err}
	}

	def := schema.Definition{Name: c.Name, Description: c.Description}

	part, err := buildPartition(c.Partition)
	if err != nil {
		return fail(err)
	}
	def.Partition = part

	for _, cc := range c.Columns {
		col, err := buildColumn(cc)
		if err != nil {
			return fail(err)
		}
		def.Columns = append(def.Columns, col)
	}
	for i, rc := range c.Constraints {
		r, err := buildRule(rc, nil)
		if err != nil {
			return fail(fmt.Errorf("constraints[%d]: %w", i, err))
		}
		def.Constraints = append(def.Constraints, r)
	}

	if c.Merge == nil {
		def.Read = queryRead(c.Name, c.Query, src)
		return def, nil
	}

	left, err := s.registry.Get(c.Merge.Left)
	if err != nil {
		return fail(err)
	}
	right, err := s.registry.Get(c.Merge.Right)
	if err != nil {
		return fail(err)
	}
	how, err := table.ParseJoin(c.Merge.How)
	if err != nil {
		return fail(err)
	}
	def.Read = schema.MergeRead(left, right, c.Merge.On, how)
	if def.Partition == nil {
		def.Partition = left.Partition()
	}
	if len(def.Columns) == 0 {
		def.Columns = schema.MergeColumns(left, right)
	}
	return def, nil
}

// queryRead binds the partition key to every placeholder of query.
func queryRead(name, query string, src Source) schema.ReadFunc {
	n := adapter.CountPlaceholders(query)
	return func(ctx context.Context, key any) (*table.Table, error) {
		if key == nil && n > 0 {
			return nil, fmt.Errorf("query has %d placeholder(s) but the schema is not partitioned", n)
		}
		args := make([]any, n)
		for i := range args {
			args[i] = keyArg(key)
		}
		return src.ReadTable(ctx, name, query, args...)
	}
}

// keyArg renders dates as YYYY-MM-DD, which every supported database casts
// to a date.
func keyArg(key any) any {
	if t, ok := key.(time.Time); ok {
		return t.Format(time.DateOnly)
	}
	return key
}

func buildPartition(pc *config.PartitionConfig) (partition.Partition, error) {
	if pc == nil {
		return nil, nil
	}
	switch pc.Type {
	case "", "default":
		return partition.Default{}, nil
	case "date":
		var start, end time.Time
		var err error
		if pc.Start != "" {
			if start, err = partition.ParseDate(pc.Start); err != nil {
				return nil, err
			}
		}
		if pc.End != "" {
			if end, err = partition.ParseDate(pc.End); err != nil {
				return nil, err
			}
		}
		var opts []partition.DateOption
		if pc.Descending {
			opts = append(opts, partition.Descending())
		}
		return partition.NewDate(start, end, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown partition type %q", schema.ErrInvalidDeclaration, pc.Type)
	}
}

func buildColumn(cc config.ColumnConfig) (*frame.Column, error) {
	kind, ok := table.ParseKind(cc.Type)
	if !ok {
		return nil, fmt.Errorf("%w: column %s: unknown type %q", schema.ErrInvalidDeclaration, cc.Name, cc.Type)
	}
	typed := frame.NewColumn(cc.Name, frame.OfKind(kind))

	rules := make([]frame.Rule, 0, len(cc.Constraints))
	for i, rc := range cc.Constraints {
		r, err := buildRule(rc, typed)
		if err != nil {
			return nil, fmt.Errorf("column %s: constraints[%d]: %w", cc.Name, i, err)
		}
		rules = append(rules, r)
	}

	opts := []frame.ColumnOption{
		frame.OfKind(kind),
		frame.Described(cc.Description),
		frame.WithRules(rules...),
	}
	if cc.Table != "" {
		opts = append(opts, frame.InTable(cc.Table))
	}
	return frame.NewColumn(cc.Name, opts...), nil
}
