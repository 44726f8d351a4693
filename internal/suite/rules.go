package suite

import (
	"fmt"

	"github.com/leapstack-labs/leapqa/internal/config"
	"github.com/leapstack-labs/leapqa/pkg/constraint"
	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/partition"
	"github.com/leapstack-labs/leapqa/pkg/schema"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// ConstraintTypes lists the constraint types accepted in configuration.
var ConstraintTypes = []string{"unique", "not_null", "accepted_values", "range", "unique_combination"}

// buildRule turns a constraint declaration into a rule. col is nil for
// schema-level constraints.
func buildRule(rc config.ConstraintConfig, col *frame.Column) (*constraint.Rule, error) {
	sev, ok := core.ParseSeverity(rc.Severity)
	if !ok {
		return nil, fmt.Errorf("%w: unknown severity %q", schema.ErrInvalidDeclaration, rc.Severity)
	}

	var r *constraint.Rule
	switch rc.Type {
	case "unique":
		r = constraint.IsUnique()
	case "not_null":
		r = constraint.IsNotNull()
	case "accepted_values":
		vals := make([]any, len(rc.Values))
		for i, v := range rc.Values {
			vals[i] = literal(v, col)
		}
		r = constraint.OneOf(vals...)
	case "range":
		r = constraint.Between(literal(rc.Min, col), literal(rc.Max, col))
	case "unique_combination":
		r = constraint.UniqueTogether(rc.Columns...)
	default:
		return nil, fmt.Errorf("%w: unknown constraint type %q (expected one of %v)",
			schema.ErrInvalidDeclaration, rc.Type, ConstraintTypes)
	}
	return r.WithSeverity(sev), nil
}

// literal converts a configured value to the column's kind where YAML cannot
// express it, such as dates written as strings.
func literal(v any, col *frame.Column) any {
	if v == nil || col == nil {
		return v
	}
	s, ok := v.(string)
	if !ok || col.Kind() != table.KindTime {
		return v
	}
	if t, err := partition.ParseDate(s); err == nil {
		return t
	}
	return v
}
