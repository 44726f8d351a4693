package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapqa/pkg/adapter"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "warehouse",
				Username: "qa",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=warehouse sslmode=disable user=qa password=pass",
		},
		{
			name:     "defaults",
			config:   adapter.Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "schema and options",
			config: adapter.Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "analytics",
				Schema:   "marts",
				Options:  map[string]string{"sslmode": "require", "connect_timeout": "5", "application_name": "leapqa"},
			},
			expected: "host=db.example.com port=5433 dbname=analytics sslmode=require search_path=marts application_name=leapqa connect_timeout=5",
		},
		{
			name: "quoted password",
			config: adapter.Config{
				Database: "mydb",
				Password: "it's a secret",
			},
			expected: `host=localhost port=5432 dbname=mydb sslmode=disable password='it\'s a secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.Nil(t, adp.DB)
	assert.False(t, adp.IsConnected())
	assert.Equal(t, "postgres", adp.DialectName())
	assert.NoError(t, adp.Close())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	err := adp.Exec(ctx, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	_, err = adp.ReadTable(ctx, "orders", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}

func TestAdapter_ReadTableRebindsPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT id FROM orders WHERE order_date = $1").
		WithArgs("2024-01-01").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	adp := New(nil)
	adp.DB = db

	tbl, err := adp.ReadTable(context.Background(), "orders",
		"SELECT id FROM orders WHERE order_date = ?", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("postgres")
	require.True(t, ok)

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.DialectName())
}
