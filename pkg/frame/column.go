package frame

import (
	"github.com/leapstack-labs/leapqa/pkg/expr"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// Column is a named placeholder that resolves to one column of the frame it
// is bound to. The rules it carries are metadata for the owning schema;
// a Column never evaluates them itself.
type Column struct {
	*expr.Expr

	tableName   string
	name        string
	kind        table.Kind
	description string
	rules       []Rule
}

// ColumnOption configures a Column.
type ColumnOption func(*Column)

// InTable scopes the column to a table, for frames built from merges.
func InTable(name string) ColumnOption {
	return func(c *Column) { c.tableName = name }
}

// OfKind declares the expected value kind.
func OfKind(k table.Kind) ColumnOption {
	return func(c *Column) { c.kind = k }
}

// Described attaches a human readable description.
func Described(desc string) ColumnOption {
	return func(c *Column) { c.description = desc }
}

// WithRules attaches constraint rules.
func WithRules(rules ...Rule) ColumnOption {
	return func(c *Column) { c.rules = append(c.rules, rules...) }
}

// Col creates an unbound column reference.
func Col(name string) *Column {
	return NewColumn(name)
}

// NewColumn creates an unbound column.
func NewColumn(name string, opts ...ColumnOption) *Column {
	c := &Column{name: name}
	for _, opt := range opts {
		opt(c)
	}
	c.Expr = expr.Placeholder(columnRef{table: c.tableName, name: c.name})
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Table returns the table scope, or "" when unqualified.
func (c *Column) Table() string { return c.tableName }

// Kind returns the declared value kind.
func (c *Column) Kind() table.Kind { return c.kind }

// Description returns the column description.
func (c *Column) Description() string { return c.description }

// Rules returns the constraint rules attached to the column.
func (c *Column) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Key returns the identifier unique within a frame: "table.name" when
// scoped, "name" otherwise.
func (c *Column) Key() string {
	if c.tableName == "" {
		return c.name
	}
	return c.tableName + "." + c.name
}

// Unbind returns a fresh, unbound copy of the column.
func (c *Column) Unbind() *Column {
	return c.copyWith(c.tableName)
}

// WithTable returns an unbound copy scoped to the given table.
func (c *Column) WithTable(name string) *Column {
	return c.copyWith(name)
}

func (c *Column) copyWith(tableName string) *Column {
	cp := &Column{
		tableName:   tableName,
		name:        c.name,
		kind:        c.kind,
		description: c.description,
		rules:       c.rules,
	}
	cp.Expr = expr.Placeholder(columnRef{table: cp.tableName, name: cp.name})
	return cp
}

// Validate checks the attached rules against the column declaration.
func (c *Column) Validate() error {
	for i, r := range c.rules {
		if r == nil {
			return &RuleError{Column: c.Key(), Index: i, Err: ErrNilConstraint}
		}
		if err := r.Validate(c); err != nil {
			return &RuleError{Column: c.Key(), Index: i, Rule: r.Name(), Err: err}
		}
	}
	return nil
}

// columnRef binds a placeholder to the column it names.
type columnRef struct {
	table string
	name  string
}

func (r columnRef) BindRoot(t expr.Target) (expr.Func, []*expr.Expr, error) {
	if r.name == "" {
		return nil, nil, expr.ErrColumnUndefined
	}
	return identity, []*expr.Expr{t.Item(r.table, r.name)}, nil
}

func identity(args []any) (any, error) {
	return args[0], nil
}
