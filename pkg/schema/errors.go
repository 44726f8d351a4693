package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateSchema is returned when a name is registered twice.
	ErrDuplicateSchema = errors.New("duplicate schema")
	// ErrInvalidDeclaration is returned for malformed schema definitions.
	ErrInvalidDeclaration = errors.New("invalid schema declaration")
	// ErrUnknownSchema is returned when looking up an unregistered name.
	ErrUnknownSchema = errors.New("unknown schema")
	// ErrConstraintFailed is matched by every *ViolationError.
	ErrConstraintFailed = errors.New("constraint failed")
)

// ConfigError is returned when a schema definition cannot be registered.
type ConfigError struct {
	Schema string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("schema: %v", e.Err)
	}
	return fmt.Sprintf("schema %q: %v", e.Schema, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ViolationError reports the blocking constraints that failed for one
// schema partition.
type ViolationError struct {
	Schema string
	Key    string
	Failed []Result
}

func (e *ViolationError) Error() string {
	names := make([]string, len(e.Failed))
	for i, r := range e.Failed {
		names[i] = r.Label()
	}
	return fmt.Sprintf("schema %s[%s]: %d constraint(s) failed: %s",
		e.Schema, e.Key, len(e.Failed), strings.Join(names, ", "))
}

func (e *ViolationError) Unwrap() error { return ErrConstraintFailed }
