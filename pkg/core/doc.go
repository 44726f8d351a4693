// Package core defines the shared language of the LeapQA system.
//
// This package contains:
//   - Domain records (Run, CheckResult, Severity)
//   - Service interfaces (Store)
//   - Configuration types (TargetConfig, AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
