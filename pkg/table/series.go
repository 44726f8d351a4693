package table

import (
	"fmt"
	"strings"
)

// Series is a named, immutable column of normalized values.
// A nil element is a null.
type Series struct {
	name   string
	values []any
}

// NewSeries creates a series from raw values, normalizing each one.
func NewSeries(name string, values []any) *Series {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return &Series{name: name, values: out}
}

// Of creates a series from a typed slice.
func Of[T any](name string, values ...T) *Series {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return &Series{name: name, values: out}
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Rename returns a copy of the series with a new name.
func (s *Series) Rename(name string) *Series {
	return &Series{name: name, values: s.values}
}

// Len returns the number of elements.
func (s *Series) Len() int { return len(s.values) }

// Value returns the element at index i.
func (s *Series) Value(i int) any { return s.values[i] }

// Values returns a copy of the elements.
func (s *Series) Values() []any {
	out := make([]any, len(s.values))
	copy(out, s.values)
	return out
}

// Kind returns the kind of the first non-null element.
func (s *Series) Kind() Kind {
	for _, v := range s.values {
		if v != nil {
			return KindOf(v)
		}
	}
	return KindAny
}

// NullCount returns the number of null elements.
func (s *Series) NullCount() int {
	n := 0
	for _, v := range s.values {
		if v == nil {
			n++
		}
	}
	return n
}

// Take returns the elements at the given indices, in order.
func (s *Series) Take(indices []int) *Series {
	out := make([]any, len(indices))
	for i, idx := range indices {
		if idx < 0 {
			continue
		}
		out[i] = s.values[idx]
	}
	return &Series{name: s.name, values: out}
}

// Bools interprets the series as a mask. Nulls are false.
func (s *Series) Bools() ([]bool, error) {
	out := make([]bool, len(s.values))
	for i, v := range s.values {
		b, err := truth(v)
		if err != nil {
			return nil, fmt.Errorf("series %q element %d: %w", s.name, i, err)
		}
		out[i] = b
	}
	return out, nil
}

// Any reports whether at least one element is true.
func (s *Series) Any() (bool, error) {
	mask, err := s.Bools()
	if err != nil {
		return false, err
	}
	for _, b := range mask {
		if b {
			return true, nil
		}
	}
	return false, nil
}

// All reports whether every element is true. An empty series is all true.
func (s *Series) All() (bool, error) {
	mask, err := s.Bools()
	if err != nil {
		return false, err
	}
	for _, b := range mask {
		if !b {
			return false, nil
		}
	}
	return true, nil
}

// Duplicated marks every element equal to an earlier element.
// The first occurrence of a value is not marked. Nulls are equal to each other.
func (s *Series) Duplicated() *Series {
	seen := make(map[any]struct{}, len(s.values))
	out := make([]any, len(s.values))
	for i, v := range s.values {
		k := keyOf(v)
		if _, ok := seen[k]; ok {
			out[i] = true
			continue
		}
		seen[k] = struct{}{}
		out[i] = false
	}
	return &Series{name: s.name, values: out}
}

// String renders a short preview of the series.
func (s *Series) String() string {
	const preview = 8
	parts := make([]string, 0, min(len(s.values), preview)+1)
	for i, v := range s.values {
		if i == preview {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, Format(v))
	}
	return fmt.Sprintf("%s[%s]", s.name, strings.Join(parts, " "))
}

func truth(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	default:
		return false, fmt.Errorf("%w: %s is not a boolean", ErrType, KindOf(v))
	}
}
