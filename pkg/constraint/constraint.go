// Package constraint implements predicates over frames.
//
// Each constraint computes one boolean violation mask over its frame. Check
// and Violations share that single evaluation, so the reported rows are
// exactly the rows that made Check fail.
package constraint

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/expr"
	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// Constraint is a predicate bound to one frame and, optionally, one column.
type Constraint struct {
	name     string
	frame    *frame.Frame
	column   *frame.Column
	mask     *expr.Expr
	severity core.Severity

	once   sync.Once
	tbl    *table.Table
	bad    *table.Series
	failed int
	err    error
}

// newConstraint binds a violation mask to f. The mask is true for every
// row breaking the predicate. A binding error is kept and reported by the
// first Check or Violations call.
func newConstraint(name string, f *frame.Frame, c *frame.Column, mask expr.Node) *Constraint {
	bound, err := f.Bind(mask)
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return &Constraint{
		name:   name,
		frame:  f,
		column: c,
		mask:   bound,
		err:    err,
	}
}

// Name returns the predicate name.
func (c *Constraint) Name() string { return c.name }

// Column returns the checked column, or nil for frame-level constraints.
func (c *Constraint) Column() *frame.Column { return c.column }

// Severity returns how a violation affects a run.
func (c *Constraint) Severity() core.Severity { return c.severity }

// evaluate collects the frame and the mask in one graph, once.
func (c *Constraint) evaluate() error {
	c.once.Do(func() {
		if c.err != nil {
			return
		}
		pair := expr.New(func(args []any) (any, error) {
			return args, nil
		}, c.frame.Expr, c.mask)
		v, err := pair.Collect()
		if err != nil {
			c.err = err
			return
		}
		args := v.([]any)
		tbl, ok := args[0].(*table.Table)
		if !ok {
			c.err = fmt.Errorf("%w: got %T", frame.ErrNotTable, args[0])
			return
		}
		bad, err := toMask(args[1], tbl.NumRows())
		if err != nil {
			c.err = fmt.Errorf("%s: %w", c.name, err)
			return
		}
		bools, err := bad.Bools()
		if err != nil {
			c.err = fmt.Errorf("%s: %w", c.name, err)
			return
		}
		for _, b := range bools {
			if b {
				c.failed++
			}
		}
		c.tbl, c.bad = tbl, bad
	})
	return c.err
}

// Check reports whether no row violates the predicate. True means passed,
// not "violations found".
func (c *Constraint) Check() (bool, error) {
	if err := c.evaluate(); err != nil {
		return false, err
	}
	return c.failed == 0, nil
}

// ViolationCount returns the number of violating rows.
func (c *Constraint) ViolationCount() (int, error) {
	if err := c.evaluate(); err != nil {
		return 0, err
	}
	return c.failed, nil
}

// Violations returns a frame of exactly the rows breaking the predicate.
func (c *Constraint) Violations() *frame.Frame {
	return c.frame.Lazy(func() (*table.Table, error) {
		if err := c.evaluate(); err != nil {
			return nil, err
		}
		return c.tbl.Filter(c.bad)
	})
}

func (c *Constraint) String() string {
	if c.column == nil {
		return c.name
	}
	return fmt.Sprintf("%s(%s)", c.name, c.column.Key())
}

// toMask broadcasts a scalar boolean over n rows.
func toMask(v any, n int) (*table.Series, error) {
	switch m := v.(type) {
	case *table.Series:
		if m.Len() != n {
			return nil, fmt.Errorf("%w: mask has %d rows, frame has %d", table.ErrLength, m.Len(), n)
		}
		return m, nil
	case bool:
		vals := make([]bool, n)
		for i := range vals {
			vals[i] = m
		}
		return table.Of("mask", vals...), nil
	default:
		return nil, fmt.Errorf("%w: mask is %T", table.ErrType, v)
	}
}

var _ frame.Constraint = (*Constraint)(nil)
