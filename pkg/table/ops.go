package table

import (
	"errors"
	"fmt"
	"math"
)

// ErrDivideByZero is returned for integer division by zero.
var ErrDivideByZero = errors.New("integer division by zero")

// CompareOp is a comparison operator.
type CompareOp string

// Comparison operators.
const (
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
)

// ArithOp is an arithmetic operator.
type ArithOp string

// Arithmetic operators. OpDiv is true division, OpFloorDiv rounds toward
// negative infinity.
const (
	OpAdd      ArithOp = "+"
	OpSub      ArithOp = "-"
	OpMul      ArithOp = "*"
	OpDiv      ArithOp = "/"
	OpFloorDiv ArithOp = "//"
)

// Operands to the functions below are either a *Series or a scalar.
// Two scalars produce a scalar; any series operand produces a series of
// the same length. Series operands must have equal lengths.

// Compare applies a comparison elementwise.
// A null on either side compares false, except for OpNe which is true.
func Compare(op CompareOp, a, b any) (any, error) {
	return broadcast(a, b, func(x, y any) (any, error) {
		if x == nil || y == nil {
			return op == OpNe, nil
		}
		if op == OpEq || op == OpNe {
			eq := keyOf(x) == keyOf(y)
			if KindOf(x) != KindOf(y) && !(KindOf(x).Numeric() && KindOf(y).Numeric()) {
				eq = false
			}
			return eq == (op == OpEq), nil
		}
		c, err := compareValues(x, y)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		case OpGe:
			return c >= 0, nil
		default:
			return nil, fmt.Errorf("unknown comparison %q", op)
		}
	})
}

// Arith applies an arithmetic operator elementwise. Nulls propagate.
// Strings support OpAdd as concatenation.
func Arith(op ArithOp, a, b any) (any, error) {
	return broadcast(a, b, func(x, y any) (any, error) {
		if x == nil || y == nil {
			return nil, nil
		}
		if xs, ok := x.(string); ok {
			ys, ok := y.(string)
			if !ok || op != OpAdd {
				return nil, fmt.Errorf("%w: %s %s %s", ErrType, KindOf(x), op, KindOf(y))
			}
			return xs + ys, nil
		}
		xi, xInt := x.(int64)
		yi, yInt := y.(int64)
		if xInt && yInt && op != OpDiv {
			return intArith(op, xi, yi)
		}
		xf, ok1 := toFloat(x)
		yf, ok2 := toFloat(y)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: %s %s %s", ErrType, KindOf(x), op, KindOf(y))
		}
		switch op {
		case OpAdd:
			return xf + yf, nil
		case OpSub:
			return xf - yf, nil
		case OpMul:
			return xf * yf, nil
		case OpDiv:
			return xf / yf, nil
		case OpFloorDiv:
			return math.Floor(xf / yf), nil
		default:
			return nil, fmt.Errorf("unknown operator %q", op)
		}
	})
}

func intArith(op ArithOp, x, y int64) (any, error) {
	switch op {
	case OpAdd:
		return x + y, nil
	case OpSub:
		return x - y, nil
	case OpMul:
		return x * y, nil
	case OpFloorDiv:
		if y == 0 {
			return nil, ErrDivideByZero
		}
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// And is the elementwise logical conjunction. Nulls count as false.
func And(a, b any) (any, error) {
	return broadcast(a, b, func(x, y any) (any, error) {
		xb, err := truth(x)
		if err != nil {
			return nil, err
		}
		yb, err := truth(y)
		if err != nil {
			return nil, err
		}
		return xb && yb, nil
	})
}

// Or is the elementwise logical disjunction. Nulls count as false.
func Or(a, b any) (any, error) {
	return broadcast(a, b, func(x, y any) (any, error) {
		xb, err := truth(x)
		if err != nil {
			return nil, err
		}
		yb, err := truth(y)
		if err != nil {
			return nil, err
		}
		return xb || yb, nil
	})
}

// Not is the elementwise logical negation. A null negates to true.
func Not(a any) (any, error) {
	return unary(a, func(x any) (any, error) {
		b, err := truth(x)
		if err != nil {
			return nil, err
		}
		return !b, nil
	})
}

// IsNull marks null elements.
func IsNull(a any) (any, error) {
	return unary(a, func(x any) (any, error) {
		return x == nil, nil
	})
}

// IsIn marks elements that equal one of values. A null is a member only
// when values contains nil.
func IsIn(a any, values []any) (any, error) {
	set := make(map[any]struct{}, len(values))
	for _, v := range values {
		set[keyOf(Normalize(v))] = struct{}{}
	}
	return unary(a, func(x any) (any, error) {
		_, ok := set[keyOf(x)]
		return ok, nil
	})
}

// Duplicated marks repeated elements of a series or repeated rows of a table.
func Duplicated(a any) (any, error) {
	switch x := a.(type) {
	case *Series:
		return x.Duplicated(), nil
	case *Table:
		return x.DuplicatedRows(), nil
	default:
		return nil, fmt.Errorf("%w: duplicated requires a series or table, got %T", ErrType, a)
	}
}

// AnyOf reports whether a mask or boolean scalar holds any true value.
func AnyOf(a any) (bool, error) {
	if s, ok := a.(*Series); ok {
		return s.Any()
	}
	return truth(Normalize(a))
}

// AllOf reports whether a mask or boolean scalar is entirely true.
func AllOf(a any) (bool, error) {
	if s, ok := a.(*Series); ok {
		return s.All()
	}
	return truth(Normalize(a))
}

func unary(a any, fn func(x any) (any, error)) (any, error) {
	s, ok := a.(*Series)
	if !ok {
		return fn(Normalize(a))
	}
	out := make([]any, len(s.values))
	for i, v := range s.values {
		r, err := fn(v)
		if err != nil {
			return nil, fmt.Errorf("series %q element %d: %w", s.name, i, err)
		}
		out[i] = r
	}
	return &Series{name: s.name, values: out}, nil
}

func broadcast(a, b any, fn func(x, y any) (any, error)) (any, error) {
	sa, aSeries := a.(*Series)
	sb, bSeries := b.(*Series)
	if !aSeries && !bSeries {
		return fn(Normalize(a), Normalize(b))
	}

	n, name := 0, ""
	switch {
	case aSeries && bSeries:
		if sa.Len() != sb.Len() {
			return nil, fmt.Errorf("%w: %q has %d rows, %q has %d", ErrLength, sa.name, sa.Len(), sb.name, sb.Len())
		}
		n, name = sa.Len(), sa.name
	case aSeries:
		n, name = sa.Len(), sa.name
	default:
		n, name = sb.Len(), sb.name
	}

	var xs, ys any
	if !aSeries {
		xs = Normalize(a)
	}
	if !bSeries {
		ys = Normalize(b)
	}
	out := make([]any, n)
	for i := range n {
		x, y := xs, ys
		if aSeries {
			x = sa.values[i]
		}
		if bSeries {
			y = sb.values[i]
		}
		r, err := fn(x, y)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = r
	}
	return &Series{name: name, values: out}, nil
}
