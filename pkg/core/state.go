package core

import "time"

// Store defines the interface for persisting check runs and their results.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(env string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun(env string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Check result operations
	RecordCheckResult(result *CheckResult) error
	GetCheckResultsForRun(runID string) ([]*CheckResult, error)
}

// RunStatus represents the status of a check run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one invocation of the checker over a set of schemas.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// CheckStatus represents the outcome of a single constraint.
type CheckStatus string

// Check status constants.
const (
	CheckStatusPassed  CheckStatus = "passed"
	CheckStatusFailed  CheckStatus = "failed"
	CheckStatusWarned  CheckStatus = "warned"
	CheckStatusErrored CheckStatus = "errored"
)

// CheckResult represents one constraint evaluated for one schema partition.
type CheckResult struct {
	ID          string
	RunID       string
	Schema      string
	Partition   string
	Constraint  string
	Column      string
	Severity    Severity
	Status      CheckStatus
	Violations  int64
	Error       string
	CheckedAt   time.Time
	ExecutionMS int64
}
