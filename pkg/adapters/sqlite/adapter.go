// Package sqlite provides a SQLite source adapter for leapqa, backed by the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/leapqa/pkg/adapter"
)

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a SQLite adapter. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "sqlite"
}

// Connect opens the database file at cfg.Path read-only. An empty path opens
// a private in-memory database, which is writable.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := ":memory:"
	if cfg.Path != "" {
		dsn = "file:" + cfg.Path + "?mode=ro"
	}
	a.Logger.Debug("connecting to sqlite", slog.String("dsn", dsn))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
