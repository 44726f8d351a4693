package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergeFixtures() (*Table, *Table) {
	orders := MustNew(
		Of("customer_id", 1, 2, 3),
		Of("amount", 10.0, 20.0, 30.0),
		Of("status", "paid", "open", "paid"),
	).WithName("orders")
	customers := MustNew(
		Of("customer_id", 1, 1, 4),
		Of("status", "active", "vip", "active"),
	).WithName("customers")
	return orders, customers
}

func TestParseJoin(t *testing.T) {
	j, err := ParseJoin("")
	require.NoError(t, err)
	assert.Equal(t, JoinInner, j)

	j, err = ParseJoin("LEFT")
	require.NoError(t, err)
	assert.Equal(t, JoinLeft, j)

	_, err = ParseJoin("outer")
	require.ErrorIs(t, err, ErrJoin)
}

func TestMerge(t *testing.T) {
	orders, customers := mergeFixtures()

	tests := []struct {
		name      string
		how       Join
		wantNames []string
		wantRows  [][]any
	}{
		{
			name:      "inner",
			how:       JoinInner,
			wantNames: []string{"customer_id", "amount", "orders.status", "customers.status"},
			wantRows: [][]any{
				{int64(1), 10.0, "paid", "active"},
				{int64(1), 10.0, "paid", "vip"},
			},
		},
		{
			name:      "left",
			how:       JoinLeft,
			wantNames: []string{"customer_id", "amount", "orders.status", "customers.status"},
			wantRows: [][]any{
				{int64(1), 10.0, "paid", "active"},
				{int64(1), 10.0, "paid", "vip"},
				{int64(2), 20.0, "open", nil},
				{int64(3), 30.0, "paid", nil},
			},
		},
		{
			name:      "right",
			how:       JoinRight,
			wantNames: []string{"customer_id", "amount", "orders.status", "customers.status"},
			wantRows: [][]any{
				{int64(1), 10.0, "paid", "active"},
				{int64(1), 10.0, "paid", "vip"},
				{int64(4), nil, nil, "active"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orders.Merge(customers, MergeOptions{On: []string{"customer_id"}, How: tt.how})
			require.NoError(t, err)
			assert.Equal(t, tt.wantNames, got.Names())
			assert.Equal(t, tt.wantRows, got.Rows())
		})
	}
}

func TestMerge_UnnamedSuffixes(t *testing.T) {
	left := MustNew(Of("k", 1), Of("v", "a"))
	right := MustNew(Of("k", 1), Of("v", "b"))

	got, err := left.Merge(right, MergeOptions{On: []string{"k"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v_x", "v_y"}, got.Names())
}

func TestMerge_NullKeysNeverMatch(t *testing.T) {
	left := MustNew(NewSeries("k", []any{nil, 1}), Of("a", "x", "y"))
	right := MustNew(NewSeries("k", []any{nil, 1}), Of("b", "p", "q"))

	got, err := left.Merge(right, MergeOptions{On: []string{"k"}, How: JoinInner})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "y", "q"}}, got.Rows())
}

func TestMerge_Errors(t *testing.T) {
	orders, customers := mergeFixtures()

	_, err := orders.Merge(customers, MergeOptions{})
	require.ErrorIs(t, err, ErrJoin)

	_, err = orders.Merge(customers, MergeOptions{On: []string{"amount"}})
	require.ErrorIs(t, err, ErrNoColumn)

	_, err = orders.Merge(customers, MergeOptions{On: []string{"customer_id"}, How: "outer"})
	require.ErrorIs(t, err, ErrJoin)
}
