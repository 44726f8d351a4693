package table

import "errors"

// Sentinel errors returned by table operations.
var (
	// ErrNoColumn is returned when a named column does not exist.
	ErrNoColumn = errors.New("no such column")
	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrLength is returned when operands have mismatched lengths.
	ErrLength = errors.New("length mismatch")
	// ErrType is returned when values cannot be combined.
	ErrType = errors.New("type mismatch")
	// ErrJoin is returned for unsupported merge options.
	ErrJoin = errors.New("unsupported join")
)
