// Package expr implements deferred, memoized computation graphs.
//
// An Expr holds a function and an ordered list of predecessor nodes. Nothing
// runs until Collect, which clones the reachable subgraph into a fresh
// Session and evaluates the clone bottom-up, so the receiver's own state is
// never shared with the computation.
package expr

import (
	"fmt"
	"iter"
	"sync"
)

// Func computes a node's value from the values of its predecessors,
// passed in predecessor order.
type Func func(args []any) (any, error)

// Target resolves column references during binding.
type Target interface {
	// Item returns a node that extracts one column from the target's table.
	Item(table, column string) *Expr
}

// Binder attaches a function and predecessors to an unbound root.
type Binder interface {
	BindRoot(t Target) (Func, []*Expr, error)
}

// Node is implemented by types that wrap an Expr.
type Node interface {
	Node() *Expr
}

// Expr is a node in a computation graph.
//
// A node with neither a function nor predecessors is an unbound root;
// evaluating it fails with ErrSourceUndefined. Evaluation state lives on the
// clones made by Collect. The receiver only records the final result of a
// successful Collect.
type Expr struct {
	fn     Func
	preds  []*Expr
	binder Binder

	evaluated bool
	value     any

	mu        sync.Mutex
	collected bool
	result    any
}

// New creates a node applying fn to the values of preds.
// It panics if any predecessor is nil.
func New(fn Func, preds ...*Expr) *Expr {
	for i, p := range preds {
		if p == nil {
			panic(fmt.Sprintf("expr: predecessor %d is nil", i))
		}
	}
	return &Expr{fn: fn, preds: preds}
}

// Lit creates a node that evaluates to v.
func Lit(v any) *Expr {
	return &Expr{fn: func([]any) (any, error) { return v, nil }}
}

// Placeholder creates an unbound root. Bind resolves it through b.
func Placeholder(b Binder) *Expr {
	return &Expr{binder: b}
}

// Node returns e.
func (e *Expr) Node() *Expr { return e }

// Predecessors returns the node's predecessors. An evaluated node has none.
func (e *Expr) Predecessors() []*Expr {
	out := make([]*Expr, len(e.preds))
	copy(out, e.preds)
	return out
}

// IsRoot reports whether the node has no predecessors.
func (e *Expr) IsRoot() bool { return len(e.preds) == 0 }

// IsBound reports whether the node has a function to evaluate.
func (e *Expr) IsBound() bool { return e.fn != nil || e.evaluated }

// Session tracks clones by identity so a subgraph reachable along several
// paths is copied once.
type Session struct {
	seen map[*Expr]*Expr
}

// NewSession creates an empty clone session.
func NewSession() *Session {
	return &Session{seen: make(map[*Expr]*Expr)}
}

// Clone returns the unique copy of e within s. The original is not modified.
// A node whose Collect already succeeded is cloned as evaluated.
func (e *Expr) Clone(s *Session) *Expr {
	if c, ok := s.seen[e]; ok {
		return c
	}
	c := &Expr{
		fn:        e.fn,
		binder:    e.binder,
		evaluated: e.evaluated,
		value:     e.value,
	}
	s.seen[e] = c

	e.mu.Lock()
	if e.collected && !c.evaluated {
		c.evaluated, c.value = true, e.result
	}
	e.mu.Unlock()

	if c.evaluated {
		c.fn, c.binder = nil, nil
		return c
	}
	if len(e.preds) > 0 {
		c.preds = make([]*Expr, len(e.preds))
		for i, p := range e.preds {
			c.preds[i] = p.Clone(s)
		}
	}
	return c
}

// Collect evaluates a private clone of the graph rooted at e and returns the
// result. A successful result is remembered, so later calls return it
// without running any function again. Errors are not remembered.
func (e *Expr) Collect() (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.collected {
		return e.result, nil
	}

	// Clone checks the memo of every node under its lock, which would
	// deadlock on e itself. Clone e by hand and its predecessors normally.
	s := NewSession()
	c := &Expr{fn: e.fn, binder: e.binder, evaluated: e.evaluated, value: e.value}
	s.seen[e] = c
	if !c.evaluated {
		c.preds = make([]*Expr, len(e.preds))
		for i, p := range e.preds {
			c.preds[i] = p.Clone(s)
		}
	}

	v, err := c.evaluate()
	if err != nil {
		return nil, err
	}
	e.collected, e.result = true, v
	return v, nil
}

// evaluate runs the node once, predecessors first, left to right.
// Function and predecessor references are dropped afterwards.
func (e *Expr) evaluate() (any, error) {
	if e.evaluated {
		return e.value, nil
	}
	if e.fn == nil {
		return nil, ErrSourceUndefined
	}
	args := make([]any, len(e.preds))
	for i, p := range e.preds {
		v, err := p.evaluate()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := e.fn(args)
	if err != nil {
		return nil, err
	}
	e.evaluated, e.value = true, v
	e.fn, e.preds, e.binder = nil, nil, nil
	return v, nil
}

// Roots yields every predecessor-less node reachable from e, depth first,
// each node once.
func (e *Expr) Roots() iter.Seq[*Expr] {
	return func(yield func(*Expr) bool) {
		seen := make(map[*Expr]bool)
		var walk func(n *Expr) bool
		walk = func(n *Expr) bool {
			if seen[n] {
				return true
			}
			seen[n] = true
			if len(n.preds) == 0 {
				return yield(n)
			}
			for _, p := range n.preds {
				if !walk(p) {
					return false
				}
			}
			return true
		}
		walk(e)
	}
}

// Bind resolves every unbound root reachable from e against t, in place.
//
// Bound roots and evaluated nodes are left alone, so binding a graph a
// second time never redirects a reference fixed by an earlier Bind. A root
// whose binder fails gets a function returning that error, and the first
// such error is returned. Callers bind clones, never shared graphs.
func (e *Expr) Bind(t Target) error {
	var first error
	for r := range e.Roots() {
		if r.IsBound() || r.binder == nil {
			continue
		}
		fn, preds, err := r.binder.BindRoot(t)
		if err != nil {
			if first == nil {
				first = err
			}
			failed := err
			r.fn = func([]any) (any, error) { return nil, failed }
			continue
		}
		r.fn, r.preds = fn, preds
	}
	return first
}
