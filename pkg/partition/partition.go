// Package partition defines the key spaces schemas are read over.
//
// A key passed to Resolve is either absolute, such as a date, or an integer
// offset that the caller must anchor to an absolute key. The two are told
// apart by the Go type of the key.
package partition

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrOutOfRange is returned when an absolute key is outside the bounds.
	ErrOutOfRange = errors.New("partition key out of range")
	// ErrUnsupportedKey is returned for keys of a type the partition does not accept.
	ErrUnsupportedKey = errors.New("unsupported partition key")
	// ErrUnbounded is returned when every key of an open range is requested.
	ErrUnbounded = errors.New("partition range is open")
)

// Partition is a validated, iterable key space.
type Partition interface {
	// Valid reports whether key is a legitimate absolute key.
	Valid(key any) bool
	// Resolve translates a key. isOffset reports that the returned key is
	// relative and must be anchored by the caller.
	Resolve(key any) (resolved any, isOffset bool, err error)
	// Iterate yields every key in order. Each call starts a new sequence.
	Iterate() iter.Seq[any]
}

// Anchorer turns a resolved offset into an absolute key.
type Anchorer interface {
	Anchor(anchor, offset any) (any, error)
}

// Bounder is implemented by partitions whose range may be left open.
type Bounder interface {
	Bounded() bool
}

// Keys collects every key of p. It fails with ErrUnbounded for an open
// range instead of walking it.
func Keys(p Partition) ([]any, error) {
	if b, ok := p.(Bounder); ok && !b.Bounded() {
		return nil, fmt.Errorf("%w: %v", ErrUnbounded, p)
	}
	var keys []any
	for k := range p.Iterate() {
		keys = append(keys, k)
	}
	return keys, nil
}

// RangeError reports a key outside a partition's bounds.
type RangeError struct {
	Key   any
	Start any
	End   any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: %v not in [%v, %v]", ErrOutOfRange, e.Key, e.Start, e.End)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Default is the singleton key space of unpartitioned schemas.
type Default struct{}

// Valid always reports true.
func (Default) Valid(any) bool { return true }

// Resolve always returns a nil absolute key.
func (Default) Resolve(any) (any, bool, error) { return nil, false, nil }

// Iterate yields a single nil key.
func (Default) Iterate() iter.Seq[any] {
	return func(yield func(any) bool) {
		yield(nil)
	}
}

// String implements fmt.Stringer.
func (Default) String() string { return "default" }
