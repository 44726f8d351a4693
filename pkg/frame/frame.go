// Package frame provides lazily evaluated tables with an attached column
// schema and relational combinators.
//
// Every combinator returns a new Frame that references its receiver as a
// predecessor. The receiver is never modified, so a Frame can still be
// collected after any number of children were derived from it.
package frame

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapqa/pkg/expr"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// Frame is a table-producing expression with a column schema.
type Frame struct {
	*expr.Expr

	columns []*Column
	byKey   map[string]*Column
}

// New creates a frame evaluating fn over preds with the given schema.
// A nil fn with no predecessors yields an unbound frame, which fails with
// expr.ErrSourceUndefined when collected. Column keys must be unique.
func New(fn expr.Func, preds []*expr.Expr, columns []*Column) (*Frame, error) {
	f := &Frame{
		Expr:    expr.New(fn, preds...),
		columns: make([]*Column, 0, len(columns)),
		byKey:   make(map[string]*Column, len(columns)),
	}
	for _, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("%w: nil column", ErrNoColumn)
		}
		if _, ok := f.byKey[c.Key()]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Key())
		}
		f.byKey[c.Key()] = c
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// FromTable wraps a materialized table, deriving one unbound column per
// field. A named table scopes its columns to that name.
func FromTable(t *table.Table) *Frame {
	names := t.Names()
	cols := make([]*Column, len(names))
	for i, n := range names {
		s, _ := t.Column(n)
		cols[i] = NewColumn(n, InTable(t.Name()), OfKind(s.Kind()))
	}
	f, err := New(func([]any) (any, error) { return t, nil }, nil, cols)
	if err != nil {
		// table.New already rejects duplicate names.
		panic(err)
	}
	return f
}

// derive wraps a new node over f whose schema is columns, copied unbound.
func (f *Frame) derive(fn expr.Func, preds []*expr.Expr, columns []*Column) *Frame {
	cols := make([]*Column, len(columns))
	for i, c := range columns {
		cols[i] = c.Unbind()
	}
	child, err := New(fn, preds, cols)
	if err != nil {
		// columns come from a frame that already passed the key check.
		panic(err)
	}
	return child
}

// Columns returns the frame schema in order.
func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// Column returns the schema column with the given name. A bare name that
// exists under several table scopes is ambiguous.
func (f *Frame) Column(name string) (*Column, error) {
	if c, ok := f.byKey[name]; ok {
		return c, nil
	}
	var found *Column
	for _, c := range f.columns {
		if c.name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q (qualify with a table name)", ErrAmbiguousColumn, name)
		}
		found = c
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return found, nil
}

// QualifiedColumn returns the schema column scoped to the given table.
func (f *Frame) QualifiedColumn(tableName, name string) (*Column, error) {
	c, ok := f.byKey[tableName+"."+name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, tableName+"."+name)
	}
	return c, nil
}

// Item returns a node extracting one column of the materialized table.
// The qualified name "table.column" is preferred; when the table has no
// such field the bare column name is used.
func (f *Frame) Item(tableName, column string) *expr.Expr {
	return expr.New(func(args []any) (any, error) {
		t, err := asTable(args[0])
		if err != nil {
			return nil, err
		}
		if tableName != "" && t.HasColumn(tableName+"."+column) {
			return t.Column(tableName + "." + column)
		}
		return t.Column(column)
	}, f.Expr)
}

// Bind returns a clone of e with every unbound column reference resolved
// against f, and the first reference that could not be resolved. The clone
// is returned either way; a failed reference makes it fail with the same
// error when collected.
func (f *Frame) Bind(e expr.Node) (*expr.Expr, error) {
	c := e.Node().Clone(expr.NewSession())
	if err := c.Bind(f); err != nil {
		return c, fmt.Errorf("bind: %w", err)
	}
	return c, nil
}

// Table collects the frame.
func (f *Frame) Table() (*table.Table, error) {
	v, err := f.Collect()
	if err != nil {
		return nil, err
	}
	return asTable(v)
}

// Select projects the named columns. A name may be qualified as
// "table.column"; it falls back to the bare name like Item does.
// The schema of the result is the selected columns, copied unbound.
func (f *Frame) Select(keys ...string) *Frame {
	keys = append([]string(nil), keys...)
	cols := make([]*Column, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		c, err := f.Column(k)
		if err != nil {
			tbl, name := splitKey(k)
			c = NewColumn(name, InTable(tbl))
		}
		if !seen[c.Key()] {
			seen[c.Key()] = true
			cols = append(cols, c)
		}
	}
	return f.derive(func(args []any) (any, error) {
		t, err := asTable(args[0])
		if err != nil {
			return nil, err
		}
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k
			if !t.HasColumn(k) {
				_, names[i] = splitKey(k)
			}
		}
		return t.Select(names...)
	}, []*expr.Expr{f.Expr}, cols)
}

// Where keeps the rows for which pred is true. The predicate is cloned and
// its column references bound to f; pred itself is not modified.
//
// Where stays chainable: a binding error is not returned here but by
// Collect on the result, wrapping expr.ErrColumnUndefined.
func (f *Frame) Where(pred expr.Node) *Frame {
	bound, bindErr := f.Bind(pred)
	return f.derive(func(args []any) (any, error) {
		if bindErr != nil {
			return nil, fmt.Errorf("where: %w", bindErr)
		}
		t, err := asTable(args[0])
		if err != nil {
			return nil, err
		}
		return filter(t, args[1])
	}, []*expr.Expr{f.Expr, bound}, f.columns)
}

// Merge joins f with other on the named key columns.
//
// Non-key columns present on both sides are qualified with each side's
// table scope. The schema of the result is columns when given, otherwise
// the union of both schemas in order, keeping the first column per key.
func (f *Frame) Merge(other *Frame, on []string, how table.Join, columns ...*Column) (*Frame, error) {
	if _, err := table.ParseJoin(string(how)); err != nil {
		return nil, err
	}
	if len(on) == 0 {
		return nil, fmt.Errorf("%w: merge requires at least one key column", table.ErrJoin)
	}
	on = append([]string(nil), on...)
	leftScope, rightScope := f.scope(), other.scope()

	if len(columns) == 0 {
		seen := make(map[string]bool)
		for _, c := range append(f.Columns(), other.columns...) {
			if !seen[c.Key()] {
				seen[c.Key()] = true
				columns = append(columns, c)
			}
		}
	}
	cols := make([]*Column, len(columns))
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("%w: nil column", ErrNoColumn)
		}
		cols[i] = c.Unbind()
	}

	return New(func(args []any) (any, error) {
		l, err := asTable(args[0])
		if err != nil {
			return nil, err
		}
		r, err := asTable(args[1])
		if err != nil {
			return nil, err
		}
		if leftScope != "" {
			l = l.WithName(leftScope)
		}
		if rightScope != "" {
			r = r.WithName(rightScope)
		}
		return l.Merge(r, table.MergeOptions{On: on, How: how})
	}, []*expr.Expr{f.Expr, other.Expr}, cols)
}

// Derive builds a frame computed by fn from f's table followed by the
// values of preds. The schema is f's, copied unbound.
func (f *Frame) Derive(fn expr.Func, preds ...*expr.Expr) *Frame {
	return f.derive(fn, append([]*expr.Expr{f.Expr}, preds...), f.columns)
}

// Lazy builds a frame computed by fn alone, without evaluating f.
// The schema is f's, copied unbound.
func (f *Frame) Lazy(fn func() (*table.Table, error)) *Frame {
	return f.derive(func([]any) (any, error) {
		return fn()
	}, nil, f.columns)
}

// scope returns the table scope shared by every column, or "".
func (f *Frame) scope() string {
	scope := ""
	for i, c := range f.columns {
		if i == 0 {
			scope = c.tableName
			continue
		}
		if c.tableName != scope {
			return ""
		}
	}
	return scope
}

func filter(t *table.Table, mask any) (*table.Table, error) {
	switch m := mask.(type) {
	case *table.Series:
		return t.Filter(m)
	case bool:
		if m {
			return t, nil
		}
		return t.Take(nil), nil
	default:
		return nil, fmt.Errorf("%w: filter mask is %T", table.ErrType, mask)
	}
}

func asTable(v any) (*table.Table, error) {
	t, ok := v.(*table.Table)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotTable, v)
	}
	return t, nil
}

func splitKey(k string) (tableName, column string) {
	if i := strings.LastIndex(k, "."); i > 0 {
		return k[:i], k[i+1:]
	}
	return "", k
}
