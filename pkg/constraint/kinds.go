package constraint

import (
	"strconv"

	"github.com/leapstack-labs/leapqa/pkg/expr"
	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// Unique fails when a value of c repeats. The first occurrence of a value
// is not a violation; every later repeat is.
func Unique(f *frame.Frame, c *frame.Column) *Constraint {
	return newConstraint("unique", f, c, c.Duplicated())
}

// UniqueCombination fails when a combination of values across cols repeats.
func UniqueCombination(f *frame.Frame, cols ...*frame.Column) *Constraint {
	preds := make([]*expr.Expr, len(cols))
	for i, c := range cols {
		preds[i] = c.Expr
	}
	rows := expr.New(func(args []any) (any, error) {
		series := make([]*table.Series, len(args))
		for i, a := range args {
			s, ok := a.(*table.Series)
			if !ok {
				return nil, table.ErrType
			}
			// Positional names, since scoped columns may share a bare name.
			series[i] = s.Rename("c" + strconv.Itoa(i))
		}
		return table.New(series...)
	}, preds...)
	return newConstraint("unique_combination", f, nil, rows.Duplicated())
}

// NotNull fails for every null value of c.
func NotNull(f *frame.Frame, c *frame.Column) *Constraint {
	return newConstraint("not_null", f, c, c.IsNull())
}

// AcceptedValues fails for every non-null value of c outside values.
func AcceptedValues(f *frame.Frame, c *frame.Column, values ...any) *Constraint {
	mask := c.In(values...).Not().And(c.IsNull().Not())
	return newConstraint("accepted_values", f, c, mask)
}

// Range fails for every value of c below lo or above hi. A nil bound is
// open. Null values never fail.
func Range(f *frame.Frame, c *frame.Column, lo, hi any) *Constraint {
	var mask *expr.Expr
	switch {
	case lo != nil && hi != nil:
		mask = c.Lt(lo).Or(c.Gt(hi))
	case lo != nil:
		mask = c.Lt(lo)
	case hi != nil:
		mask = c.Gt(hi)
	default:
		mask = c.IsNull().And(false)
	}
	return newConstraint("range", f, c, mask)
}

// Assert fails for every row where pred is not true.
func Assert(f *frame.Frame, name string, pred expr.Node) *Constraint {
	if name == "" {
		name = "assert"
	}
	return newConstraint(name, f, nil, pred.Node().Not())
}
