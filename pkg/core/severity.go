package core

import "strings"

// Severity indicates how a failed constraint affects a check run.
type Severity int

// Severity levels for constraints.
const (
	// SeverityError fails the run when the constraint is violated.
	SeverityError Severity = iota
	// SeverityWarning is reported but never fails the run.
	SeverityWarning
	// SeverityInfo is reported for visibility only.
	SeverityInfo
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Blocking reports whether a violation at this severity fails a run.
func (s Severity) Blocking() bool {
	return s == SeverityError
}

// ParseSeverity converts a string to a Severity value.
// An empty string is SeverityError. Returns false for unknown names.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityError, false
	}
}
