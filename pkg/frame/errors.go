package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateColumn is returned when two columns of one frame share a key.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrNilConstraint is returned when a nil rule is attached to a column.
	ErrNilConstraint = errors.New("nil constraint")
	// ErrNoColumn is returned by accessors for an unknown column.
	ErrNoColumn = errors.New("no such column")
	// ErrAmbiguousColumn is returned when a bare name matches several tables.
	ErrAmbiguousColumn = errors.New("ambiguous column")
	// ErrNotTable is returned when a frame evaluates to something other than a table.
	ErrNotTable = errors.New("frame did not produce a table")
)

// RuleError describes an invalid rule on a column declaration.
type RuleError struct {
	Column string
	Index  int
	Rule   string
	Err    error
}

func (e *RuleError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("column %q rule %d: %v", e.Column, e.Index, e.Err)
	}
	return fmt.Sprintf("column %q rule %q: %v", e.Column, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }
