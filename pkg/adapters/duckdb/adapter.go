// Package duckdb provides a DuckDB source adapter for leapqa.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/leapqa/pkg/adapter"
)

// Adapter implements adapter.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a DuckDB adapter. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Convert: convert},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect opens the database at cfg.Path and applies cfg.Params.
// An empty path opens an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	stmts, err := params.statements()
	if err != nil {
		return fmt.Errorf("invalid duckdb params: %w", err)
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to configure duckdb: %w", err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// convert turns DuckDB-specific scan values into plain Go values.
func convert(v any) any {
	switch x := v.(type) {
	case duckdb.Decimal:
		if x.Value == nil {
			return nil
		}
		f := new(big.Float).SetInt(x.Value)
		scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(x.Scale)), nil))
		out, _ := f.Quo(f, scale).Float64()
		return out
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		return x.String()
	default:
		return v
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
