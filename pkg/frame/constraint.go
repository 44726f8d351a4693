package frame

// Constraint is a predicate bound to a frame.
type Constraint interface {
	// Name identifies the predicate, e.g. "unique".
	Name() string
	// Column returns the checked column, or nil for frame-level constraints.
	Column() *Column
	// Check evaluates the predicate and reports whether it holds: true means
	// the frame passed. This is the negation of "violations exist", so a
	// Unique constraint over duplicated keys returns false.
	Check() (bool, error)
	// Violations returns a frame of exactly the rows breaking the predicate.
	Violations() *Frame
}

// Rule is a declared constraint not yet bound to data. A schema applies its
// rules to each instance frame.
type Rule interface {
	Name() string
	// Validate rejects declarations the rule cannot check, such as a range
	// on a string column. The column is nil for frame-level rules.
	Validate(c *Column) error
	// Apply binds the rule to f. The column is nil for frame-level rules.
	Apply(f *Frame, c *Column) (Constraint, error)
}
