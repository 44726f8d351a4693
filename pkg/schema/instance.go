package schema

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/frame"
)

// Instance is a schema bound to one partition key.
type Instance struct {
	*frame.Frame

	schema      *Schema
	key         any
	isOffset    bool
	constraints []frame.Constraint
}

// Schema returns the schema the instance belongs to.
func (i *Instance) Schema() *Schema { return i.schema }

// Key returns the resolved partition key.
func (i *Instance) Key() any { return i.key }

// IsOffset reports whether the key is an unanchored offset.
func (i *Instance) IsOffset() bool { return i.isOffset }

// Constraints returns the bound column and schema constraints, column
// constraints first in declaration order.
func (i *Instance) Constraints() []frame.Constraint {
	out := make([]frame.Constraint, len(i.constraints))
	copy(out, i.constraints)
	return out
}

type severer interface {
	Severity() core.Severity
}

type counter interface {
	ViolationCount() (int, error)
}

// Check evaluates every constraint. Any evaluation error aborts the check
// and no report is returned.
func (i *Instance) Check() (*Report, error) {
	report := &Report{Schema: i.schema.name, Key: FormatKey(i.key)}
	for _, c := range i.constraints {
		start := time.Now()
		passed, err := c.Check()
		if err != nil {
			return nil, fmt.Errorf("schema %s[%s]: %s: %w", report.Schema, report.Key, label(c), err)
		}

		r := Result{
			Constraint: c.Name(),
			Severity:   core.SeverityError,
			Passed:     passed,
			Rows:       c.Violations(),
		}
		if col := c.Column(); col != nil {
			r.Column = col.Key()
		}
		if s, ok := c.(severer); ok {
			r.Severity = s.Severity()
		}
		if n, ok := c.(counter); ok {
			if r.Violations, err = n.ViolationCount(); err != nil {
				return nil, fmt.Errorf("schema %s[%s]: %s: %w", report.Schema, report.Key, label(c), err)
			}
		}
		r.Elapsed = time.Since(start)
		report.Results = append(report.Results, r)
	}
	return report, nil
}

// Result is the outcome of one constraint.
type Result struct {
	Constraint string
	Column     string
	Severity   core.Severity
	Passed     bool
	Violations int
	Elapsed    time.Duration
	// Rows collects to the violating rows.
	Rows *frame.Frame
}

// Label identifies the result, e.g. "unique(orders.id)".
func (r Result) Label() string {
	if r.Column == "" {
		return r.Constraint
	}
	return fmt.Sprintf("%s(%s)", r.Constraint, r.Column)
}

// Status maps the result to its stored status.
func (r Result) Status() core.CheckStatus {
	switch {
	case r.Passed:
		return core.CheckStatusPassed
	case r.Severity.Blocking():
		return core.CheckStatusFailed
	default:
		return core.CheckStatusWarned
	}
}

// Report collects the results of checking one schema instance.
type Report struct {
	Schema  string
	Key     string
	Results []Result
}

// Passed reports whether no blocking constraint failed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed && res.Severity.Blocking() {
			return false
		}
	}
	return true
}

// Failed returns every result that did not pass, whatever its severity.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Err returns a *ViolationError listing the failed blocking constraints,
// or nil.
func (r *Report) Err() error {
	var blocking []Result
	for _, res := range r.Failed() {
		if res.Severity.Blocking() {
			blocking = append(blocking, res)
		}
	}
	if len(blocking) == 0 {
		return nil
	}
	return &ViolationError{Schema: r.Schema, Key: r.Key, Failed: blocking}
}

func label(c frame.Constraint) string {
	if col := c.Column(); col != nil {
		return fmt.Sprintf("%s(%s)", c.Name(), col.Key())
	}
	return c.Name()
}
