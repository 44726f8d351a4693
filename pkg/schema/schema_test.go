package schema

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapqa/internal/testutil"
	"github.com/leapstack-labs/leapqa/pkg/constraint"
	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/expr"
	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/partition"
	"github.com/leapstack-labs/leapqa/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := partition.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ordersByDay serves one small table per day and counts reads.
type ordersByDay struct {
	mu    sync.Mutex
	calls map[string]int
}

func (o *ordersByDay) read(_ context.Context, key any) (*table.Table, error) {
	d := key.(time.Time)
	o.mu.Lock()
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[FormatKey(d)]++
	o.mu.Unlock()

	return table.New(
		table.Of("id", 1, 2, 2),
		table.NewSeries("status", []any{"paid", nil, "open"}),
		table.Of("day", d, d, d),
	)
}

func ordersDefinition(t *testing.T, src *ordersByDay) Definition {
	t.Helper()
	p, err := partition.NewDate(day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	return Definition{
		Name: "orders",
		Columns: []*frame.Column{
			frame.NewColumn("id", frame.OfKind(table.KindInt), frame.WithRules(constraint.IsUnique())),
			frame.NewColumn("status", frame.WithRules(
				constraint.IsNotNull().WithSeverity(core.SeverityWarning),
				constraint.OneOf("paid", "open"),
			)),
		},
		Constraints: []frame.Rule{constraint.UniqueTogether("id", "status")},
		Partition:   p,
		Read:        src.read,
	}
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	src := &ordersByDay{}

	s, err := reg.Register(ordersDefinition(t, src), WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, "orders", s.Name())

	// Columns are scoped to the schema.
	assert.Equal(t, "orders.id", s.Columns()[0].Key())

	_, err = reg.Register(ordersDefinition(t, src))
	require.ErrorIs(t, err, ErrDuplicateSchema)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "orders", cfgErr.Schema)

	got, err := reg.Get("orders")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = reg.Get("nope")
	require.ErrorIs(t, err, ErrUnknownSchema)
	assert.Equal(t, []string{"orders"}, reg.Names())
	assert.Len(t, reg.List(), 1)
}

func TestCompile_Errors(t *testing.T) {
	read := func(context.Context, any) (*table.Table, error) { return table.Empty(), nil }

	tests := []struct {
		name    string
		def     Definition
		wantErr error
	}{
		{"no name", Definition{Read: read}, ErrInvalidDeclaration},
		{"no read", Definition{Name: "x"}, ErrInvalidDeclaration},
		{"nil column", Definition{Name: "x", Read: read, Columns: []*frame.Column{nil}}, ErrInvalidDeclaration},
		{"unnamed column", Definition{Name: "x", Read: read, Columns: []*frame.Column{frame.Col("")}}, ErrInvalidDeclaration},
		{
			"duplicate column",
			Definition{Name: "x", Read: read, Columns: []*frame.Column{frame.Col("a"), frame.Col("a")}},
			frame.ErrDuplicateColumn,
		},
		{
			"nil column rule",
			Definition{Name: "x", Read: read, Columns: []*frame.Column{frame.NewColumn("a", frame.WithRules(nil))}},
			frame.ErrNilConstraint,
		},
		{
			"nil schema rule",
			Definition{Name: "x", Read: read, Constraints: []frame.Rule{nil}},
			frame.ErrNilConstraint,
		},
		{
			"kind conflict",
			Definition{Name: "x", Read: read, Columns: []*frame.Column{
				frame.NewColumn("a", frame.OfKind(table.KindString), frame.WithRules(constraint.Between(0, 1))),
			}},
			constraint.ErrInvalidRule,
		},
		{
			"column rule at schema level",
			Definition{Name: "x", Read: read, Constraints: []frame.Rule{constraint.IsUnique()}},
			constraint.ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.def)
			require.ErrorIs(t, err, tt.wantErr)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestNew_CachesReadsAndInstances(t *testing.T) {
	src := &ordersByDay{}
	s, err := Compile(ordersDefinition(t, src))
	require.NoError(t, err)
	ctx := context.Background()

	a, err := s.New(ctx, day("2024-01-15"))
	require.NoError(t, err)
	b, err := s.New(ctx, time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Same(t, a, b)

	t1, err := a.Table()
	require.NoError(t, err)
	t2, err := a.Where(frame.Col("id").Gt(1)).Table()
	require.NoError(t, err)
	_, err = a.Check()
	require.NoError(t, err)

	assert.Equal(t, 3, t1.NumRows())
	assert.Equal(t, 2, t2.NumRows())
	assert.Equal(t, 1, src.calls["2024-01-15"])
	assert.Equal(t, int64(1), s.ReadCount())
}

func TestNew_ConcurrentFirstRead(t *testing.T) {
	src := &ordersByDay{}
	s, err := Compile(ordersDefinition(t, src))
	require.NoError(t, err)

	inst, err := s.New(context.Background(), day("2024-01-02"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inst.Select("id").Table()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.calls["2024-01-02"])
}

func TestNew_OutOfRange(t *testing.T) {
	s, err := Compile(ordersDefinition(t, &ordersByDay{}))
	require.NoError(t, err)

	_, err = s.New(context.Background(), day("2024-02-01"))
	require.ErrorIs(t, err, partition.ErrOutOfRange)
	var rangeErr *partition.RangeError
	require.ErrorAs(t, err, &rangeErr)
}

func TestNew_Offsets(t *testing.T) {
	src := &ordersByDay{}
	s, err := Compile(ordersDefinition(t, src))
	require.NoError(t, err)
	ctx := context.Background()

	unanchored, err := s.New(ctx, -1)
	require.NoError(t, err)
	assert.True(t, unanchored.IsOffset())
	_, err = unanchored.Table()
	require.ErrorIs(t, err, expr.ErrSourceUndefined)

	anchored, err := s.New(ctx, -1, WithAnchor(day("2024-01-10")))
	require.NoError(t, err)
	assert.False(t, anchored.IsOffset())
	assert.Equal(t, day("2024-01-09"), anchored.Key())

	direct, err := s.New(ctx, day("2024-01-09"))
	require.NoError(t, err)
	assert.Same(t, anchored, direct)

	_, err = s.New(ctx, -1, WithAnchor(day("2024-01-01")))
	require.ErrorIs(t, err, partition.ErrOutOfRange)
}

// evenKeys resolves any int as an absolute key but only accepts even ones.
type evenKeys struct{}

func (evenKeys) Valid(key any) bool {
	n, ok := key.(int)
	return ok && n%2 == 0
}

func (evenKeys) Resolve(key any) (any, bool, error) { return key, false, nil }

func (evenKeys) Iterate() iter.Seq[any] {
	return func(yield func(any) bool) {
		for n := 0; n < 4 && yield(n); n += 2 {
		}
	}
}

func TestNew_RejectsInvalidKey(t *testing.T) {
	s, err := Compile(Definition{
		Name:      "even",
		Partition: evenKeys{},
		Read: func(context.Context, any) (*table.Table, error) {
			return table.New(table.Of("n", 1))
		},
	})
	require.NoError(t, err)

	_, err = s.New(context.Background(), 3)
	require.ErrorIs(t, err, partition.ErrOutOfRange)

	inst, err := s.New(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.Key())
}

func TestNew_DefaultPartition(t *testing.T) {
	calls := 0
	s, err := Compile(Definition{
		Name: "countries",
		Read: func(_ context.Context, key any) (*table.Table, error) {
			calls++
			assert.Nil(t, key)
			return table.New(table.Of("code", "DE", "FR"))
		},
	})
	require.NoError(t, err)

	a, err := s.New(context.Background(), nil)
	require.NoError(t, err)
	b, err := s.New(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "default", FormatKey(a.Key()))

	_, err = a.Table()
	require.NoError(t, err)
	_, err = b.Table()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestNew_ReadErrorsAreNotCached(t *testing.T) {
	fail := true
	s, err := Compile(Definition{
		Name: "flaky",
		Read: func(context.Context, any) (*table.Table, error) {
			if fail {
				return nil, errors.New("connection refused")
			}
			return table.New(table.Of("a", 1))
		},
	})
	require.NoError(t, err)
	inst, err := s.New(context.Background(), nil)
	require.NoError(t, err)

	_, err = inst.Table()
	require.ErrorContains(t, err, "read flaky[default]: connection refused")

	fail = false
	_, err = inst.Table()
	require.NoError(t, err)
}

func TestInstance_Check(t *testing.T) {
	s, err := Compile(ordersDefinition(t, &ordersByDay{}))
	require.NoError(t, err)
	inst, err := s.New(context.Background(), day("2024-01-03"))
	require.NoError(t, err)

	require.Len(t, inst.Constraints(), 4)

	report, err := inst.Check()
	require.NoError(t, err)
	assert.Equal(t, "orders", report.Schema)
	assert.Equal(t, "2024-01-03", report.Key)

	labels := make(map[string]Result)
	for _, r := range report.Results {
		labels[r.Label()] = r
	}
	require.Contains(t, labels, "unique(orders.id)")
	assert.False(t, labels["unique(orders.id)"].Passed)
	assert.Equal(t, 1, labels["unique(orders.id)"].Violations)
	assert.Equal(t, core.CheckStatusFailed, labels["unique(orders.id)"].Status())

	assert.False(t, labels["not_null(orders.status)"].Passed)
	assert.Equal(t, core.CheckStatusWarned, labels["not_null(orders.status)"].Status())

	assert.True(t, labels["accepted_values(orders.status)"].Passed)
	assert.True(t, labels["unique_combination"].Passed)

	assert.False(t, report.Passed())
	assert.Len(t, report.Failed(), 2)

	err = report.Err()
	require.ErrorIs(t, err, ErrConstraintFailed)
	var vErr *ViolationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Failed, 1)
	assert.Equal(t, "schema orders[2024-01-03]: 1 constraint(s) failed: unique(orders.id)", err.Error())

	rows, err := labels["unique(orders.id)"].Rows.Table()
	require.NoError(t, err)
	assert.Equal(t, 1, rows.NumRows())
}

func TestInstance_CheckAbortsOnError(t *testing.T) {
	s, err := Compile(Definition{
		Name: "broken",
		Columns: []*frame.Column{
			frame.NewColumn("missing", frame.WithRules(constraint.IsNotNull())),
		},
		Read: func(context.Context, any) (*table.Table, error) {
			return table.New(table.Of("a", 1))
		},
	})
	require.NoError(t, err)
	inst, err := s.New(context.Background(), nil)
	require.NoError(t, err)

	report, err := inst.Check()
	require.ErrorIs(t, err, table.ErrNoColumn)
	assert.Nil(t, report)
}

func TestReport_WarningsOnly(t *testing.T) {
	r := &Report{Schema: "s", Key: "default", Results: []Result{
		{Constraint: "not_null", Column: "s.a", Severity: core.SeverityWarning},
		{Constraint: "unique", Column: "s.b", Severity: core.SeverityError, Passed: true},
	}}
	assert.True(t, r.Passed())
	assert.NoError(t, r.Err())
	assert.Len(t, r.Failed(), 1)
}

func TestMergeRead(t *testing.T) {
	reg := NewRegistry()
	ordersSrc := &ordersByDay{}
	orders := reg.MustRegister(ordersDefinition(t, ordersSrc))

	customers := reg.MustRegister(Definition{
		Name:      "customers",
		Columns:   []*frame.Column{frame.Col("id"), frame.Col("status")},
		Partition: orders.Partition(),
		Read: func(context.Context, any) (*table.Table, error) {
			return table.New(table.Of("id", 1, 2), table.Of("status", "vip", "new"))
		},
	})

	merged, err := reg.Register(Definition{
		Name:      "orders_customers",
		Columns:   MergeColumns(orders, customers),
		Partition: orders.Partition(),
		Read:      MergeRead(orders, customers, []string{"id"}, table.JoinLeft),
	})
	require.NoError(t, err)
	assert.Len(t, merged.Columns(), 4)

	inst, err := merged.New(context.Background(), day("2024-01-05"))
	require.NoError(t, err)
	tbl, err := inst.Table()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "orders.status", "day", "customers.status"}, tbl.Names())
	assert.Equal(t, 3, tbl.NumRows())

	vip, err := inst.Where(frame.NewColumn("status", frame.InTable("customers")).Eq("vip")).Table()
	require.NoError(t, err)
	assert.Equal(t, 1, vip.NumRows())

	// The left side read went through the orders cache.
	_, err = orders.New(context.Background(), day("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 1, ordersSrc.calls["2024-01-05"])
}

func TestFormatKey(t *testing.T) {
	assert.Equal(t, "default", FormatKey(nil))
	assert.Equal(t, "2024-01-02", FormatKey(day("2024-01-02")))
	assert.Equal(t, "-1d", FormatKey(-partition.Day))
	assert.Equal(t, "+2d", FormatKey(2*partition.Day))
	assert.Equal(t, "x", FormatKey("x"))
}
