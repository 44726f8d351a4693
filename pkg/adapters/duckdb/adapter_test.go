package duckdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapqa/internal/testutil"
	"github.com/leapstack-labs/leapqa/pkg/adapter"
	"github.com/leapstack-labs/leapqa/pkg/core"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name:      "in-memory",
			setupPath: func(_ *testing.T) string { return "" },
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(testutil.NewTestLogger(t))
			path := tt.setupPath(t)
			require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: path}))
			defer func() { _ = adp.Close() }()

			assert.True(t, adp.IsConnected())
			if tt.verify != nil {
				tt.verify(t, path)
			}
		})
	}
}

func TestAdapter_ConnectAppliesSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{
		Params: map[string]any{"settings": map[string]any{"threads": 2}},
	}))
	defer func() { _ = adp.Close() }()

	tbl, err := adp.ReadTable(ctx, "settings", "SELECT current_setting('threads') AS threads")
	require.NoError(t, err)
	assert.Equal(t, "2", fmt.Sprint(tbl.Row(0)[0]))
}

func TestAdapter_ConnectRejectsBadParams(t *testing.T) {
	err := New(nil).Connect(context.Background(), core.AdapterConfig{
		Params: map[string]any{"secrets": []any{map[string]any{"provider": "config"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb params")
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.Error(t, adp.Exec(ctx, "SELECT 1"))
	_, err := adp.ReadTable(ctx, "t", "SELECT 1")
	assert.Error(t, err)
}

func TestAdapter_ReadTable(t *testing.T) {
	ctx := context.Background()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, `
		CREATE TABLE orders AS SELECT * FROM (VALUES
			(1, DATE '2024-01-01', 10.50::DECIMAL(10,2), 'open'),
			(2, DATE '2024-01-01', NULL, 'closed'),
			(3, DATE '2024-01-02', 7.25::DECIMAL(10,2), 'open')
		) t(id, order_date, amount, status)`))

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl, err := adp.ReadTable(ctx, "orders",
		"SELECT id, amount, status FROM orders WHERE order_date = ? ORDER BY id", day)
	require.NoError(t, err)

	assert.Equal(t, "orders", tbl.Name())
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []any{int64(1), 10.5, "open"}, tbl.Row(0))
	assert.Equal(t, []any{int64(2), nil, "closed"}, tbl.Row(1))
}

func TestRegistered(t *testing.T) {
	a, err := adapter.NewAdapter(core.AdapterConfig{Type: "duckdb"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", a.DialectName())
}
