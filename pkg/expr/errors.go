package expr

import "errors"

var (
	// ErrSourceUndefined is returned when evaluation reaches an unbound root.
	ErrSourceUndefined = errors.New("data source undefined")
	// ErrColumnUndefined is returned when a column reference has no name.
	ErrColumnUndefined = errors.New("column undefined")
)
