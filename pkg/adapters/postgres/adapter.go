// Package postgres provides a PostgreSQL source adapter for leapqa.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/leapstack-labs/leapqa/pkg/adapter"
)

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a PostgreSQL adapter. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger: logger,
			Rebind: adapter.DollarPlaceholders,
		},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a key=value connection string.
// Options other than sslmode are passed through in key order.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		"host=" + host,
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteValue(cfg.Database),
		"sslmode=" + sslmode,
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+quoteValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteValue(cfg.Password))
	}
	if cfg.Schema != "" {
		parts = append(parts, "search_path="+quoteValue(cfg.Schema))
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quoteValue(cfg.Options[k]))
	}
	return strings.Join(parts, " ")
}

// quoteValue quotes a DSN value when it is empty or contains spaces or quotes.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

var _ adapter.Adapter = (*Adapter)(nil)
