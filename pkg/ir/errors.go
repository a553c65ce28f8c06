package ir

import "fmt"

// MalformedInstanceError reports a structural violation that makes the
// whole instance unusable. Callers treat it as fatal: no output is
// produced for a malformed instance.
type MalformedInstanceError struct {
	Subject string // offending construct: a constraint id or kind, or a variable id
	Message string
}

func (e *MalformedInstanceError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("malformed instance: %s: %s", e.Subject, e.Message)
	}
	return fmt.Sprintf("malformed instance: %s", e.Message)
}

// Common error messages
const (
	ErrDuplicateVariable  = "duplicate variable %q"
	ErrDuplicateArray     = "duplicate array %q"
	ErrMultipleObjectives = "instance declares more than one objective"
	ErrEmptyDomain        = "variable %q has an empty domain"
	ErrInvertedRange      = "variable %q has an inverted domain range"
	ErrDanglingBinding    = "template references argument %%%d but the row supplies %d"
	ErrChannelLength      = "channel lists have mismatched lengths %d and %d"
	ErrUnknownArray       = "reference to unknown array %q"
	ErrUnknownVariable    = "reference to unknown variable %q"
	ErrIndexOutOfBounds   = "index %d is outside array %q"
)
