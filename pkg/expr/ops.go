package expr

import (
	"fmt"

	"github.com/leapstack-labs/leapqa/pkg/table"
)

// Operators build new nodes over e and an operand. An operand that is not a
// Node is wrapped with Lit. Values are combined elementwise by pkg/table.

func operand(v any) *Expr {
	if n, ok := v.(Node); ok && n.Node() != nil {
		return n.Node()
	}
	return Lit(v)
}

func (e *Expr) compare(op table.CompareOp, other any) *Expr {
	return New(func(args []any) (any, error) {
		return table.Compare(op, args[0], args[1])
	}, e, operand(other))
}

func (e *Expr) arith(op table.ArithOp, other any) *Expr {
	return New(func(args []any) (any, error) {
		return table.Arith(op, args[0], args[1])
	}, e, operand(other))
}

// Lt is e < other.
func (e *Expr) Lt(other any) *Expr { return e.compare(table.OpLt, other) }

// Le is e <= other.
func (e *Expr) Le(other any) *Expr { return e.compare(table.OpLe, other) }

// Gt is e > other.
func (e *Expr) Gt(other any) *Expr { return e.compare(table.OpGt, other) }

// Ge is e >= other.
func (e *Expr) Ge(other any) *Expr { return e.compare(table.OpGe, other) }

// Eq is e == other.
func (e *Expr) Eq(other any) *Expr { return e.compare(table.OpEq, other) }

// Ne is e != other.
func (e *Expr) Ne(other any) *Expr { return e.compare(table.OpNe, other) }

// Add is e + other.
func (e *Expr) Add(other any) *Expr { return e.arith(table.OpAdd, other) }

// Sub is e - other.
func (e *Expr) Sub(other any) *Expr { return e.arith(table.OpSub, other) }

// Mul is e * other.
func (e *Expr) Mul(other any) *Expr { return e.arith(table.OpMul, other) }

// Div is true division.
func (e *Expr) Div(other any) *Expr { return e.arith(table.OpDiv, other) }

// FloorDiv is division rounded toward negative infinity.
func (e *Expr) FloorDiv(other any) *Expr { return e.arith(table.OpFloorDiv, other) }

// And is the elementwise conjunction.
func (e *Expr) And(other any) *Expr {
	return New(func(args []any) (any, error) {
		return table.And(args[0], args[1])
	}, e, operand(other))
}

// Or is the elementwise disjunction.
func (e *Expr) Or(other any) *Expr {
	return New(func(args []any) (any, error) {
		return table.Or(args[0], args[1])
	}, e, operand(other))
}

// Not is the elementwise negation.
func (e *Expr) Not() *Expr {
	return New(func(args []any) (any, error) {
		return table.Not(args[0])
	}, e)
}

// In marks elements equal to one of values.
func (e *Expr) In(values ...any) *Expr {
	set := append([]any(nil), values...)
	return New(func(args []any) (any, error) {
		return table.IsIn(args[0], set)
	}, e)
}

// IsNull marks null elements.
func (e *Expr) IsNull() *Expr {
	return New(func(args []any) (any, error) {
		return table.IsNull(args[0])
	}, e)
}

// Duplicated marks repeated values, not counting the first occurrence.
func (e *Expr) Duplicated() *Expr {
	return New(func(args []any) (any, error) {
		return table.Duplicated(args[0])
	}, e)
}

// Any reduces a mask to whether any element is true.
func (e *Expr) Any() *Expr {
	return New(func(args []any) (any, error) {
		return table.AnyOf(args[0])
	}, e)
}

// All reduces a mask to whether every element is true.
func (e *Expr) All() *Expr {
	return New(func(args []any) (any, error) {
		return table.AllOf(args[0])
	}, e)
}

// Check collects e and reports whether every element is true.
func (e *Expr) Check() (bool, error) {
	v, err := e.All().Collect()
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: check produced %T", table.ErrType, v)
	}
	return b, nil
}

// Apply builds a node running fn over e and the given operands.
func (e *Expr) Apply(fn Func, others ...any) *Expr {
	preds := make([]*Expr, 0, len(others)+1)
	preds = append(preds, e)
	for _, o := range others {
		preds = append(preds, operand(o))
	}
	return New(fn, preds...)
}
