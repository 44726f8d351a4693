// Package schema binds declared columns and constraints to data read per
// partition key.
//
// A Schema is compiled once from a Definition and registered by name. Each
// call to New resolves a key through the schema's partition and returns the
// Instance for that key: a frame over the table read for the key, plus the
// schema's constraints bound to it. Tables are read at most once per key and
// kept for the life of the process.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/partition"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// ReadFunc loads the raw table for a resolved partition key. The key is nil
// for unpartitioned schemas.
type ReadFunc func(ctx context.Context, key any) (*table.Table, error)

// Definition declares a schema.
type Definition struct {
	Name        string
	Description string
	// Columns are scoped to the schema name unless they name a table.
	Columns []*frame.Column
	// Constraints are schema-level rules, such as unique combinations.
	Constraints []frame.Rule
	// Partition defaults to partition.Default.
	Partition partition.Partition
	Read      ReadFunc
}

// Schema is a compiled, registered Definition.
type Schema struct {
	name        string
	description string
	columns     []*frame.Column
	rules       []frame.Rule
	part        partition.Partition
	read        ReadFunc
	logger      *slog.Logger

	mu        sync.Mutex
	tables    map[string]*table.Table
	instances map[string]*Instance
	group     singleflight.Group
	reads     atomic.Int64
}

// Option configures a Schema.
type Option func(*Schema)

// WithLogger sets the logger used for read and cache events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Schema) {
		if l != nil {
			s.logger = l
		}
	}
}

// Compile validates a definition. Every error is a *ConfigError.
func Compile(def Definition, opts ...Option) (*Schema, error) {
	fail := func(err error) (*Schema, error) {
		return nil, &ConfigError{Schema: def.Name, Err: err}
	}
	if def.Name == "" {
		return fail(fmt.Errorf("%w: name is required", ErrInvalidDeclaration))
	}
	if def.Read == nil {
		return fail(fmt.Errorf("%w: read function is required", ErrInvalidDeclaration))
	}

	s := &Schema{
		name:        def.Name,
		description: def.Description,
		part:        def.Partition,
		read:        def.Read,
		logger:      slog.New(slog.DiscardHandler),
		tables:      make(map[string]*table.Table),
		instances:   make(map[string]*Instance),
	}
	if s.part == nil {
		s.part = partition.Default{}
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, c := range def.Columns {
		if c == nil {
			return fail(fmt.Errorf("%w: column %d is nil", ErrInvalidDeclaration, i))
		}
		if c.Name() == "" {
			return fail(fmt.Errorf("%w: column %d has no name", ErrInvalidDeclaration, i))
		}
		if c.Table() == "" {
			c = c.WithTable(def.Name)
		}
		if err := c.Validate(); err != nil {
			return fail(err)
		}
		s.columns = append(s.columns, c)
	}
	// Rejects duplicate column keys.
	if _, err := frame.New(nil, nil, s.columns); err != nil {
		return fail(err)
	}

	for i, r := range def.Constraints {
		if r == nil {
			return fail(&frame.RuleError{Column: def.Name, Index: i, Err: frame.ErrNilConstraint})
		}
		if err := r.Validate(nil); err != nil {
			return fail(&frame.RuleError{Column: def.Name, Index: i, Rule: r.Name(), Err: err})
		}
		s.rules = append(s.rules, r)
	}
	return s, nil
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Description returns the schema description.
func (s *Schema) Description() string { return s.description }

// Partition returns the key space of the schema.
func (s *Schema) Partition() partition.Partition { return s.part }

// Columns returns the declared columns.
func (s *Schema) Columns() []*frame.Column {
	out := make([]*frame.Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Rules returns the schema-level rules.
func (s *Schema) Rules() []frame.Rule {
	out := make([]frame.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ReadCount returns how many times the read function has been invoked.
func (s *Schema) ReadCount() int64 { return s.reads.Load() }

// InstanceOption configures a call to New.
type InstanceOption func(*instanceOptions)

type instanceOptions struct {
	anchor any
}

// WithAnchor resolves offset keys relative to anchor.
func WithAnchor(anchor any) InstanceOption {
	return func(o *instanceOptions) { o.anchor = anchor }
}

// New returns the instance of the schema for key.
//
// An offset key is anchored when WithAnchor is given. An absolute key the
// partition does not report as Valid fails with partition.ErrOutOfRange.
// Without an anchor the
// instance frame is unbound and collecting it fails with
// expr.ErrSourceUndefined. Instances are cached per resolved key, so the
// same key always yields the same *Instance.
//
// Reads run when the instance is first collected, with ctx stripped of its
// cancellation because the instance outlives the call.
func (s *Schema) New(ctx context.Context, key any, opts ...InstanceOption) (*Instance, error) {
	var o instanceOptions
	for _, opt := range opts {
		opt(&o)
	}

	resolved, isOffset, err := s.part.Resolve(key)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", s.name, err)
	}
	if isOffset && o.anchor != nil {
		anchorer, ok := s.part.(partition.Anchorer)
		if !ok {
			return nil, fmt.Errorf("schema %s: %w: partition %T cannot anchor offsets",
				s.name, partition.ErrUnsupportedKey, s.part)
		}
		if resolved, err = anchorer.Anchor(o.anchor, resolved); err != nil {
			return nil, fmt.Errorf("schema %s: %w", s.name, err)
		}
		isOffset = false
	}
	if !isOffset && !s.part.Valid(resolved) {
		return nil, fmt.Errorf("schema %s: %w: %v is not a key of %T",
			s.name, partition.ErrOutOfRange, resolved, s.part)
	}

	ck := cacheKey(resolved)
	if isOffset {
		ck = "offset:" + ck
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[ck]; ok {
		return inst, nil
	}
	inst, err := s.instantiate(context.WithoutCancel(ctx), resolved, isOffset)
	if err != nil {
		return nil, err
	}
	s.instances[ck] = inst
	return inst, nil
}

func (s *Schema) instantiate(ctx context.Context, key any, isOffset bool) (*Instance, error) {
	cols := make([]*frame.Column, len(s.columns))
	for i, c := range s.columns {
		cols[i] = c.Unbind()
	}

	var f *frame.Frame
	var err error
	if isOffset {
		f, err = frame.New(nil, nil, cols)
	} else {
		f, err = frame.New(func([]any) (any, error) {
			return s.load(ctx, key)
		}, nil, cols)
	}
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", s.name, err)
	}

	inst := &Instance{Frame: f, schema: s, key: key, isOffset: isOffset}
	for _, c := range cols {
		for _, r := range c.Rules() {
			bound, err := r.Apply(f, c)
			if err != nil {
				return nil, fmt.Errorf("schema %s: column %s: %w", s.name, c.Key(), err)
			}
			inst.constraints = append(inst.constraints, bound)
		}
	}
	for _, r := range s.rules {
		bound, err := r.Apply(f, nil)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", s.name, err)
		}
		inst.constraints = append(inst.constraints, bound)
	}
	return inst, nil
}

// load returns the cached table for key, reading it on first use.
// Concurrent first reads of one key share a single call.
func (s *Schema) load(ctx context.Context, key any) (*table.Table, error) {
	ck := cacheKey(key)

	s.mu.Lock()
	t, ok := s.tables[ck]
	s.mu.Unlock()
	if ok {
		s.logger.Debug("partition cache hit", slog.String("schema", s.name), slog.String("key", FormatKey(key)))
		return t, nil
	}

	v, err, _ := s.group.Do(ck, func() (any, error) {
		s.mu.Lock()
		t, ok := s.tables[ck]
		s.mu.Unlock()
		if ok {
			return t, nil
		}

		start := time.Now()
		s.reads.Add(1)
		t, err := s.read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s[%s]: %w", s.name, FormatKey(key), err)
		}
		if t == nil {
			return nil, fmt.Errorf("read %s[%s]: read function returned no table", s.name, FormatKey(key))
		}
		s.logger.Debug("partition read",
			slog.String("schema", s.name),
			slog.String("key", FormatKey(key)),
			slog.Int("rows", t.NumRows()),
			slog.Duration("elapsed", time.Since(start)))

		s.mu.Lock()
		s.tables[ck] = t
		s.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*table.Table), nil
}

// FormatKey renders a partition key for display and storage.
func FormatKey(key any) string {
	switch k := key.(type) {
	case nil:
		return "default"
	case time.Time:
		return k.Format(time.DateOnly)
	case time.Duration:
		return fmt.Sprintf("%+dd", int(k/partition.Day))
	default:
		return fmt.Sprint(k)
	}
}

func cacheKey(key any) string {
	return fmt.Sprintf("%T:%s", key, FormatKey(key))
}
