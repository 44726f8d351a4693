// Package dag orders derived schemas after the schemas they read from.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ErrCycle is returned when dependencies form a cycle.
var ErrCycle = errors.New("dependency cycle")

// CycleError reports the nodes of a cycle, starting and ending with the
// same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// Graph is a dependency graph keyed by node name.
type Graph[T any] struct {
	data     map[string]T
	children map[string][]string // dependency -> dependents
	parents  map[string][]string // dependent -> dependencies
}

// New creates an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{
		data:     make(map[string]T),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// Add adds a node or replaces its data.
func (g *Graph[T]) Add(id string, data T) {
	g.data[id] = data
}

// Get returns the data of a node.
func (g *Graph[T]) Get(id string) (T, bool) {
	v, ok := g.data[id]
	return v, ok
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int { return len(g.data) }

// DependsOn records that id reads from dep. Both nodes must exist.
func (g *Graph[T]) DependsOn(id, dep string) error {
	if _, ok := g.data[id]; !ok {
		return fmt.Errorf("node %q does not exist", id)
	}
	if _, ok := g.data[dep]; !ok {
		return fmt.Errorf("%q depends on unknown node %q", id, dep)
	}
	if id == dep {
		return &CycleError{Path: []string{id, id}}
	}
	if !slices.Contains(g.parents[id], dep) {
		g.parents[id] = append(g.parents[id], dep)
		g.children[dep] = append(g.children[dep], id)
	}
	return nil
}

// Dependencies returns the direct dependencies of id.
func (g *Graph[T]) Dependencies(id string) []string {
	return slices.Clone(g.parents[id])
}

// FindCycle returns a cycle if there is one.
func (g *Graph[T]) FindCycle() *CycleError {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(g.data))
	var stack []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		state[id] = active
		stack = append(stack, id)
		for _, child := range g.children[id] {
			switch state[child] {
			case active:
				start := slices.Index(stack, child)
				path := append(slices.Clone(stack[start:]), child)
				return &CycleError{Path: path}
			case unvisited:
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.ids() {
		if state[id] == unvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sort returns node names with every dependency before its dependents.
// Ties are broken by name.
func (g *Graph[T]) Sort() ([]string, error) {
	if err := g.FindCycle(); err != nil {
		return nil, err
	}
	return g.order(g.ids()), nil
}

// Upstream returns ids and everything they depend on, transitively, in
// dependency order.
func (g *Graph[T]) Upstream(ids ...string) ([]string, error) {
	if err := g.FindCycle(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := g.data[id]; !ok {
			return nil, fmt.Errorf("node %q does not exist", id)
		}
	}
	sorted := slices.Clone(ids)
	sort.Strings(sorted)
	return g.order(sorted), nil
}

// Levels groups nodes so that each level only depends on earlier ones.
func (g *Graph[T]) Levels() ([][]string, error) {
	order, err := g.Sort()
	if err != nil {
		return nil, err
	}
	level := make(map[string]int, len(order))
	var levels [][]string
	for _, id := range order {
		l := 0
		for _, p := range g.parents[id] {
			l = max(l, level[p]+1)
		}
		level[id] = l
		if l == len(levels) {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], id)
	}
	return levels, nil
}

// order walks roots depth-first, emitting dependencies first.
func (g *Graph[T]) order(roots []string) []string {
	seen := make(map[string]bool)
	var out []string
	var visit func(id string)
	visit = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		deps := slices.Clone(g.parents[id])
		sort.Strings(deps)
		for _, p := range deps {
			visit(p)
		}
		out = append(out, id)
	}
	for _, id := range roots {
		visit(id)
	}
	return out
}

func (g *Graph[T]) ids() []string {
	ids := make([]string, 0, len(g.data))
	for id := range g.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
