package constraint

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/expr"
	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// ErrInvalidRule is returned when a rule cannot check the declaration it is
// attached to.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is a declared constraint. It implements frame.Rule.
type Rule struct {
	name     string
	level    level
	severity core.Severity
	validate func(c *frame.Column) error
	apply    func(f *frame.Frame, c *frame.Column) (*Constraint, error)
}

type level int

const (
	columnLevel level = iota
	frameLevel
)

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Severity returns the severity given to bound constraints.
func (r *Rule) Severity() core.Severity { return r.severity }

// WithSeverity returns a copy of the rule with a different severity.
func (r *Rule) WithSeverity(s core.Severity) *Rule {
	cp := *r
	cp.severity = s
	return &cp
}

// Validate rejects declarations the rule cannot check.
func (r *Rule) Validate(c *frame.Column) error {
	switch {
	case r.level == columnLevel && c == nil:
		return fmt.Errorf("%w: %s must be declared on a column", ErrInvalidRule, r.name)
	case r.level == frameLevel && c != nil:
		return fmt.Errorf("%w: %s must be declared on the schema, not a column", ErrInvalidRule, r.name)
	}
	if r.validate != nil {
		return r.validate(c)
	}
	return nil
}

// Apply binds the rule to f.
func (r *Rule) Apply(f *frame.Frame, c *frame.Column) (frame.Constraint, error) {
	if err := r.Validate(c); err != nil {
		return nil, err
	}
	bound, err := r.apply(f, c)
	if err != nil {
		return nil, err
	}
	bound.severity = r.severity
	return bound, nil
}

// IsUnique declares that a column holds no repeated values.
func IsUnique() *Rule {
	return &Rule{
		name: "unique",
		apply: func(f *frame.Frame, c *frame.Column) (*Constraint, error) {
			return Unique(f, c), nil
		},
	}
}

// IsNotNull declares that a column holds no nulls.
func IsNotNull() *Rule {
	return &Rule{
		name: "not_null",
		apply: func(f *frame.Frame, c *frame.Column) (*Constraint, error) {
			return NotNull(f, c), nil
		},
	}
}

// OneOf declares the complete set of values a column may hold.
func OneOf(values ...any) *Rule {
	values = append([]any(nil), values...)
	return &Rule{
		name: "accepted_values",
		validate: func(c *frame.Column) error {
			if len(values) == 0 {
				return fmt.Errorf("%w: accepted_values needs at least one value", ErrInvalidRule)
			}
			for _, v := range values {
				if err := compatible(c, v); err != nil {
					return err
				}
			}
			return nil
		},
		apply: func(f *frame.Frame, c *frame.Column) (*Constraint, error) {
			return AcceptedValues(f, c, values...), nil
		},
	}
}

// Between declares inclusive bounds for a column. Either bound may be nil.
func Between(lo, hi any) *Rule {
	return &Rule{
		name: "range",
		validate: func(c *frame.Column) error {
			if lo == nil && hi == nil {
				return fmt.Errorf("%w: range needs a min or a max", ErrInvalidRule)
			}
			switch c.Kind() {
			case table.KindBool, table.KindString:
				return fmt.Errorf("%w: range on %s column %q", ErrInvalidRule, c.Kind(), c.Key())
			}
			for _, b := range []any{lo, hi} {
				if b == nil {
					continue
				}
				if err := compatible(c, b); err != nil {
					return err
				}
			}
			if lo != nil && hi != nil {
				gt, err := table.Compare(table.OpGt, lo, hi)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrInvalidRule, err)
				}
				if b, _ := gt.(bool); b {
					return fmt.Errorf("%w: range min %v is greater than max %v", ErrInvalidRule, lo, hi)
				}
			}
			return nil
		},
		apply: func(f *frame.Frame, c *frame.Column) (*Constraint, error) {
			return Range(f, c, lo, hi), nil
		},
	}
}

// UniqueTogether declares that the combination of the named columns is
// unique across the schema.
func UniqueTogether(columns ...string) *Rule {
	columns = append([]string(nil), columns...)
	return &Rule{
		name:  "unique_combination",
		level: frameLevel,
		validate: func(*frame.Column) error {
			if len(columns) == 0 {
				return fmt.Errorf("%w: unique_combination needs at least one column", ErrInvalidRule)
			}
			return nil
		},
		apply: func(f *frame.Frame, _ *frame.Column) (*Constraint, error) {
			cols := make([]*frame.Column, len(columns))
			for i, name := range columns {
				c, err := f.Column(name)
				if err != nil {
					return nil, err
				}
				cols[i] = c
			}
			return UniqueCombination(f, cols...), nil
		},
	}
}

// Satisfies declares a row-level predicate over the schema. Rows for which
// pred is not true are violations.
func Satisfies(name string, pred expr.Node) *Rule {
	if name == "" {
		name = "assert"
	}
	return &Rule{
		name:  name,
		level: frameLevel,
		validate: func(*frame.Column) error {
			if pred == nil || pred.Node() == nil {
				return fmt.Errorf("%w: %s has no predicate", ErrInvalidRule, name)
			}
			return nil
		},
		apply: func(f *frame.Frame, _ *frame.Column) (*Constraint, error) {
			return Assert(f, name, pred), nil
		},
	}
}

// compatible checks that v can be compared with values of c.
func compatible(c *frame.Column, v any) error {
	want := c.Kind()
	got := table.KindOf(table.Normalize(v))
	if want == table.KindAny || got == table.KindAny || want == got {
		return nil
	}
	if want.Numeric() && got.Numeric() {
		return nil
	}
	return fmt.Errorf("%w: %v is %s, column %q is %s", ErrInvalidRule, v, got, c.Key(), want)
}

var _ frame.Rule = (*Rule)(nil)
