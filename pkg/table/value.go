package table

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind is the logical type of a column value.
type Kind int

// Supported value kinds.
const (
	KindAny Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

// String returns the config spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "any"
	}
}

// Numeric reports whether values of this kind compare as numbers.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// ParseKind converts a config spelling to a Kind.
// Returns KindAny and false for unknown names.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return KindAny, true
	case "bool", "boolean":
		return KindBool, true
	case "int", "integer", "bigint":
		return KindInt, true
	case "float", "double", "decimal", "number":
		return KindFloat, true
	case "string", "text", "varchar":
		return KindString, true
	case "time", "date", "datetime", "timestamp":
		return KindTime, true
	default:
		return KindAny, false
	}
}

// KindOf returns the kind of a normalized value. Nil is KindAny.
func KindOf(v any) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case time.Time:
		return KindTime
	default:
		return KindAny
	}
}

// Normalize converts v to one of the canonical value types:
// nil, bool, int64, float64, string or time.Time.
// Types without a canonical form are formatted as strings.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, int64, float64, string, time.Time:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return float64(x)
		}
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// compareValues orders two normalized, non-nil values.
// Mixed int/float pairs compare numerically.
func compareValues(a, b any) (int, error) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), nil
		case float64:
			return cmpOrdered(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y), nil
		case int64:
			return cmpOrdered(x, float64(y)), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}
	return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrType, KindOf(a), KindOf(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// keyOf returns a comparable identity for a normalized value, used for
// hashing in duplicate detection, membership tests and joins.
// Integral floats share the key of the equal integer.
func keyOf(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x)
		}
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return x
	}
}

// Format renders a value for display. Nil renders as "NULL".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
