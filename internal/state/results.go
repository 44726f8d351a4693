package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapqa/pkg/core"
)

// RecordCheckResult stores the outcome of one constraint. ID and CheckedAt
// are filled in when empty.
func (s *SQLiteStore) RecordCheckResult(r *core.CheckResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if r.ID == "" {
		r.ID = generateID()
	}
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}

	var errorPtr *string
	if r.Error != "" {
		errorPtr = &r.Error
	}
	_, err := s.db.Exec(
		`INSERT INTO check_results
		 (id, run_id, schema_name, partition, constraint_name, column_name, severity, status, violations, error, checked_at, execution_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunID, r.Schema, r.Partition, r.Constraint, r.Column,
		r.Severity.String(), string(r.Status), r.Violations, errorPtr, r.CheckedAt, r.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record check result: %w", err)
	}
	return nil
}

// GetCheckResultsForRun returns the results of a run in recording order.
func (s *SQLiteStore) GetCheckResultsForRun(runID string) ([]*core.CheckResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, schema_name, partition, constraint_name, column_name, severity, status, violations, error, checked_at, execution_ms
		 FROM check_results WHERE run_id = ? ORDER BY checked_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*core.CheckResult
	for rows.Next() {
		var (
			r        core.CheckResult
			severity string
			status   string
			errMsg   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Schema, &r.Partition, &r.Constraint, &r.Column,
			&severity, &status, &r.Violations, &errMsg, &r.CheckedAt, &r.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", err)
		}
		r.Severity, _ = core.ParseSeverity(severity)
		r.Status = core.CheckStatus(status)
		r.Error = errMsg.String
		results = append(results, &r)
	}
	return results, rows.Err()
}
