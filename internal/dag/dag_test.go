package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orders and customers are read directly; enriched merges them and
// report merges enriched with refunds.
func buildGraph(t *testing.T) *Graph[string] {
	t.Helper()
	g := New[string]()
	for _, id := range []string{"report", "enriched", "orders", "customers", "refunds"} {
		g.Add(id, "schema:"+id)
	}
	require.NoError(t, g.DependsOn("enriched", "orders"))
	require.NoError(t, g.DependsOn("enriched", "customers"))
	require.NoError(t, g.DependsOn("report", "enriched"))
	require.NoError(t, g.DependsOn("report", "refunds"))
	return g
}

func TestGraph_Sort(t *testing.T) {
	g := buildGraph(t)

	order, err := g.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "enriched", "refunds", "report"}, order)

	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, id := range order {
		for _, dep := range g.Dependencies(id) {
			assert.Less(t, pos[dep], pos[id], "%s before %s", dep, id)
		}
	}
}

func TestGraph_Upstream(t *testing.T) {
	g := buildGraph(t)

	up, err := g.Upstream("enriched")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "enriched"}, up)

	up, err = g.Upstream("refunds")
	require.NoError(t, err)
	assert.Equal(t, []string{"refunds"}, up)

	_, err = g.Upstream("missing")
	assert.Error(t, err)
}

func TestGraph_Levels(t *testing.T) {
	levels, err := buildGraph(t).Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"customers", "orders", "refunds"},
		{"enriched"},
		{"report"},
	}, levels)
}

func TestGraph_Cycle(t *testing.T) {
	g := New[int]()
	g.Add("a", 1)
	g.Add("b", 2)
	g.Add("c", 3)
	require.NoError(t, g.DependsOn("b", "a"))
	require.NoError(t, g.DependsOn("c", "b"))
	require.NoError(t, g.DependsOn("a", "c"))

	_, err := g.Sort()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
}

func TestGraph_DependsOnErrors(t *testing.T) {
	g := New[int]()
	g.Add("a", 1)

	err := g.DependsOn("a", "a")
	assert.ErrorIs(t, err, ErrCycle)

	err = g.DependsOn("a", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node "missing"`)

	assert.Error(t, g.DependsOn("missing", "a"))
}

func TestGraph_Get(t *testing.T) {
	g := New[int]()
	g.Add("a", 1)
	g.Add("a", 2)

	v, ok := g.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, g.Len())

	_, ok = g.Get("b")
	assert.False(t, ok)
}
