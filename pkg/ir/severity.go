package ir

import "strings"

// Severity indicates the importance of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError indicates a construct that blocks a faithful translation.
	SeverityError Severity = iota
	// SeverityWarning indicates a construct that was kept but not translated.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
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

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityWarning, false
	}
}

// Diagnostic represents a non-fatal finding produced while parsing or
// transforming an instance. Diagnostics never abort a conversion; they
// accumulate and are reported alongside the result.
type Diagnostic struct {
	Constraint string // constraint id, or its kind when the source has no id
	Kind       Kind   // kind of the construct the finding refers to
	Severity   Severity
	Message    string
}
