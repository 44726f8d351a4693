package expr

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leapstack-labs/leapqa/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableTarget resolves columns from a fixed table.
type tableTarget struct {
	src *Expr
}

func newTableTarget(tbl *table.Table) *tableTarget {
	return &tableTarget{src: Lit(tbl)}
}

func (t *tableTarget) Item(_, column string) *Expr {
	return New(func(args []any) (any, error) {
		return args[0].(*table.Table).Column(column)
	}, t.src)
}

// ref is a minimal column placeholder binder.
type ref string

func (r ref) BindRoot(t Target) (Func, []*Expr, error) {
	if r == "" {
		return nil, nil, ErrColumnUndefined
	}
	return func(args []any) (any, error) { return args[0], nil }, []*Expr{t.Item("", string(r))}, nil
}

func counting(calls *atomic.Int32, v any) *Expr {
	return New(func([]any) (any, error) {
		calls.Add(1)
		return v, nil
	})
}

func TestCollect_AtMostOnce(t *testing.T) {
	var calls atomic.Int32
	e := counting(&calls, int64(41)).Add(1)

	v1, err := e.Collect()
	require.NoError(t, err)
	v2, err := e.Collect()
	require.NoError(t, err)

	assert.Equal(t, int64(42), v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollect_Concurrent(t *testing.T) {
	var calls atomic.Int32
	e := counting(&calls, int64(1)).Mul(2)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := e.Collect()
			assert.NoError(t, err)
			assert.Equal(t, int64(2), v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollect_ReusesCollectedPredecessor(t *testing.T) {
	var calls atomic.Int32
	base := counting(&calls, int64(10))
	_, err := base.Collect()
	require.NoError(t, err)

	v, err := base.Sub(3).Collect()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollect_ErrorsAreNotCached(t *testing.T) {
	fail := true
	e := New(func([]any) (any, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return "ok", nil
	})

	_, err := e.Collect()
	require.EqualError(t, err, "boom")

	fail = false
	v, err := e.Collect()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCollect_LeavesOriginalUntouched(t *testing.T) {
	e := Lit(int64(1)).Add(2)
	_, err := e.Collect()
	require.NoError(t, err)

	assert.False(t, e.evaluated)
	assert.NotNil(t, e.fn)
	assert.Len(t, e.Predecessors(), 2)
}

func TestCollect_UnboundRoot(t *testing.T) {
	_, err := Placeholder(ref("x")).Gt(1).Collect()
	require.ErrorIs(t, err, ErrSourceUndefined)

	_, err = New(nil).Collect()
	require.ErrorIs(t, err, ErrSourceUndefined)
}

func TestClone_PreservesSharing(t *testing.T) {
	var calls atomic.Int32
	shared := counting(&calls, int64(5))
	a := shared.Add(1)
	b := shared.Mul(2)
	top := a.Add(b)

	s := NewSession()
	c := top.Clone(s)
	ca, cb := c.preds[0], c.preds[1]
	require.Same(t, ca.preds[0], cb.preds[0])
	assert.NotSame(t, shared, ca.preds[0])
	assert.Same(t, c, top.Clone(s))

	v, err := top.Collect()
	require.NoError(t, err)
	assert.Equal(t, int64(16), v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEvaluate_ReleasesReferences(t *testing.T) {
	c := Lit(int64(2)).Add(3).Clone(NewSession())
	v, err := c.evaluate()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
	assert.Nil(t, c.fn)
	assert.Empty(t, c.preds)
	assert.True(t, c.IsBound())
}

func TestRoots(t *testing.T) {
	x := Placeholder(ref("x"))
	y := Placeholder(ref("y"))
	e := x.Gt(1).And(y.Lt(x))

	// x, the literal 1, then y; x is reached twice but yielded once.
	roots := slices.Collect(e.Roots())
	require.Len(t, roots, 3)
	assert.Same(t, x, roots[0])
	assert.Same(t, y, roots[2])

	n := 0
	for range e.Roots() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestBind(t *testing.T) {
	tbl := table.MustNew(table.Of("a", 0, 1, 2, 3), table.Of("b", 5, 6, 7, 8))
	pred := Placeholder(ref("a")).Gt(1).And(Placeholder(ref("b")).Lt(8))

	c := pred.Clone(NewSession())
	require.NoError(t, c.Bind(newTableTarget(tbl)))

	v, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, []any{false, false, true, false}, v.(*table.Series).Values())

	for r := range pred.Roots() {
		if r.binder != nil {
			assert.False(t, r.IsBound(), "original placeholder must stay unbound")
		}
	}
}

func TestBind_Idempotent(t *testing.T) {
	first := table.MustNew(table.Of("a", 1, 2))
	second := table.MustNew(table.Of("a", 100, 200))

	c := Placeholder(ref("a")).Add(0).Clone(NewSession())
	require.NoError(t, c.Bind(newTableTarget(first)))
	require.NoError(t, c.Bind(newTableTarget(second)))

	v, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v.(*table.Series).Values())
}

func TestBind_ColumnUndefined(t *testing.T) {
	c := Placeholder(ref("")).Eq(1).Clone(NewSession())
	err := c.Bind(newTableTarget(table.MustNew(table.Of("a", 1))))
	require.ErrorIs(t, err, ErrColumnUndefined)

	_, err = c.Collect()
	require.ErrorIs(t, err, ErrColumnUndefined)
}

func TestNew_NilPredecessorPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil, Lit(1), nil) })
}
