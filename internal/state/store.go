// Package state persists conversion history in SQLite. It tracks runs,
// the per-file conversions inside each run, the diagnostics those
// conversions produced, and content hashes used to skip unchanged
// inputs.
package state

import "time"

// RunStatus is the lifecycle state of a conversion run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the batch converter over a set of inputs.
type Run struct {
	ID          string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Converted   int
	Skipped     int
	Failed      int
	Error       string
}

// ConversionStatus is the outcome of converting a single input file.
type ConversionStatus string

// Conversion outcomes. An incomplete conversion produced output but
// left unsupported constraints flagged in it.
const (
	ConversionConverted  ConversionStatus = "converted"
	ConversionIncomplete ConversionStatus = "incomplete"
	ConversionSkipped    ConversionStatus = "skipped"
	ConversionFailed     ConversionStatus = "failed"
)

// Conversion records one input file processed during a run.
type Conversion struct {
	ID          string
	RunID       string
	Input       string
	Output      string
	Status      ConversionStatus
	ContentHash string
	Diagnostics int
	Error       string
	CreatedAt   time.Time
}

// DiagnosticRecord is a persisted pipeline diagnostic, keyed by the run
// and input file it came from.
type DiagnosticRecord struct {
	RunID      string
	Input      string
	Constraint string
	Kind       string
	Severity   string
	Message    string
}
