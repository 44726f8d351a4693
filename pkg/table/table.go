// Package table provides the in-memory columnar tables that schemas read
// into and constraints evaluate over.
package table

import (
	"fmt"
	"strings"
)

// Table is an immutable, ordered set of equal-length named series.
type Table struct {
	name  string
	names []string
	cols  map[string]*Series
	rows  int
}

// New creates a table from the given series.
// Column names must be unique and all series must have the same length.
func New(cols ...*Series) (*Table, error) {
	t := &Table{
		names: make([]string, 0, len(cols)),
		cols:  make(map[string]*Series, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, ok := t.cols[c.name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrLength, c.name, c.Len(), t.rows)
		}
		t.names = append(t.names, c.name)
		t.cols[c.name] = c
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(cols ...*Series) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRows creates a table from row-major values.
func FromRows(names []string, rows [][]any) (*Table, error) {
	cols := make([]*Series, len(names))
	for j, name := range names {
		vals := make([]any, len(rows))
		for i, row := range rows {
			if len(row) != len(names) {
				return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrLength, i, len(row), len(names))
			}
			vals[i] = row[j]
		}
		cols[j] = NewSeries(name, vals)
	}
	return New(cols...)
}

// Empty returns a zero-row table with the given column names.
func Empty(names ...string) *Table {
	cols := make([]*Series, len(names))
	for i, n := range names {
		cols[i] = &Series{name: n}
	}
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the source name of the table, if any.
func (t *Table) Name() string { return t.name }

// WithName returns a shallow copy of the table tagged with a source name.
// The name is used to qualify overlapping columns in merges.
func (t *Table) WithName(name string) *Table {
	cp := *t
	cp.name = name
	return &cp
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.names) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the named series.
func (t *Table) Column(name string) (*Series, error) {
	s, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrNoColumn, name, strings.Join(t.names, ", "))
	}
	return s, nil
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.names))
	for j, n := range t.names {
		out[j] = t.cols[n].values[i]
	}
	return out
}

// Rows returns all rows in column order.
func (t *Table) Rows() [][]any {
	out := make([][]any, t.rows)
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Series, len(names))
	for i, n := range names {
		s, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		cols[i] = s
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.name = t.name
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out, nil
}

// Filter returns the rows where mask is true. Null mask entries drop the row.
func (t *Table) Filter(mask *Series) (*Table, error) {
	if mask.Len() != t.rows {
		return nil, fmt.Errorf("%w: mask has %d rows, table has %d", ErrLength, mask.Len(), t.rows)
	}
	bools, err := mask.Bools()
	if err != nil {
		return nil, err
	}
	idx, err := keptRows(bools)
	if err != nil {
		return nil, err
	}
	return t.Take(idx), nil
}

// Take returns the rows at the given indices, in order.
// A negative index yields a row of nulls.
func (t *Table) Take(indices []int) *Table {
	out := &Table{
		name:  t.name,
		names: t.names,
		cols:  make(map[string]*Series, len(t.names)),
		rows:  len(indices),
	}
	for _, n := range t.names {
		out.cols[n] = t.cols[n].Take(indices)
	}
	return out
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) *Table {
	n = min(n, t.rows)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.Take(idx)
}

// DuplicatedRows marks every row equal to an earlier row across all columns.
func (t *Table) DuplicatedRows() *Series {
	seen := make(map[string]struct{}, t.rows)
	out := make([]any, t.rows)
	for i := range t.rows {
		k := t.rowKey(i, t.names)
		if _, ok := seen[k]; ok {
			out[i] = true
			continue
		}
		seen[k] = struct{}{}
		out[i] = false
	}
	return &Series{name: strings.Join(t.names, ","), values: out}
}

func (t *Table) rowKey(i int, names []string) string {
	var b strings.Builder
	for _, n := range names {
		v := t.cols[n].values[i]
		fmt.Fprintf(&b, "%T:%v\x1f", keyOf(v), keyOf(v))
	}
	return b.String()
}
