// Package adapter defines the database contract behind SQL-backed schema
// reads.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves by name in their init functions.
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter is a connection to a database that schemas read from.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a SQL statement that returns rows. Parameters are
	// written as ? and rewritten to the driver's placeholder style.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// ReadTable runs a query and loads its whole result set.
	ReadTable(ctx context.Context, name, sql string, args ...any) (*table.Table, error)

	// DialectName returns the name of the SQL dialect spoken by the database.
	DialectName() string
}
