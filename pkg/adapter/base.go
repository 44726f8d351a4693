package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed it in concrete adapters to get Close, Exec, Query and ReadTable.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	// Rebind rewrites ? placeholders for the driver. Nil leaves them as is.
	Rebind func(string) string

	// Convert maps driver-specific scan values before normalization.
	Convert func(any) any
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := b.DB.ExecContext(ctx, b.rebind(sqlStr), args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, b.rebind(sqlStr), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// ReadTable runs the query and scans every row into a table named name.
func (b *BaseSQLAdapter) ReadTable(ctx context.Context, name, sqlStr string, args ...any) (*table.Table, error) {
	rows, err := b.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	t, err := scanTable(rows.Rows, b.Convert)
	if err != nil {
		return nil, err
	}
	if b.Logger != nil {
		b.Logger.Debug("read table",
			slog.String("table", name),
			slog.Int("rows", t.NumRows()),
			slog.Int("columns", t.NumCols()))
	}
	return t.WithName(name), nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

func (b *BaseSQLAdapter) rebind(sqlStr string) string {
	if b.Rebind == nil {
		return sqlStr
	}
	return b.Rebind(sqlStr)
}

// ScanTable reads the remaining rows of a result set into a table.
// Values are normalized as by table.NewSeries.
func ScanTable(rows *sql.Rows) (*table.Table, error) {
	return scanTable(rows, nil)
}

func scanTable(rows *sql.Rows, convert func(any) any) (*table.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if convert != nil {
			for i, v := range vals {
				vals[i] = convert(v)
			}
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(data) == 0 {
		return table.Empty(names...), nil
	}
	return table.FromRows(names, data)
}

// DollarPlaceholders rewrites ? placeholders to $1, $2, ... Question marks
// inside single-quoted literals are left alone.
func DollarPlaceholders(sqlStr string) string {
	var sb strings.Builder
	n := 0
	last := 0
	for _, i := range placeholders(sqlStr) {
		n++
		sb.WriteString(sqlStr[last:i])
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
		last = i + 1
	}
	sb.WriteString(sqlStr[last:])
	return sb.String()
}

// CountPlaceholders returns the number of ? placeholders in sqlStr.
func CountPlaceholders(sqlStr string) int {
	return len(placeholders(sqlStr))
}

// placeholders returns the byte offsets of ? outside single quotes.
func placeholders(sqlStr string) []int {
	var out []int
	quoted := false
	for i := 0; i < len(sqlStr); i++ {
		switch sqlStr[i] {
		case '\'':
			quoted = !quoted
		case '?':
			if !quoted {
				out = append(out, i)
			}
		}
	}
	return out
}
