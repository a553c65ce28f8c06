package parser

import (
	"errors"
	"fmt"
)

// ParseError reports malformed XCSP3 input. Element names the enclosing
// XML element (or "expression" for functional-notation errors) so the
// message points at the offending part of the document.
type ParseError struct {
	Element string
	Message string
}

func (e *ParseError) Error() string {
	if e.Element == "" {
		return "parse error: " + e.Message
	}
	return fmt.Sprintf("parse error in <%s>: %s", e.Element, e.Message)
}

// UnsupportedExprError reports a functional operator outside the
// expression algebra. Callers keep the owning constraint as an
// unsupported node and surface a diagnostic instead of failing the
// whole parse.
type UnsupportedExprError struct {
	Op string
}

func (e *UnsupportedExprError) Error() string {
	return fmt.Sprintf("operator %q has no supported form", e.Op)
}

// errShortTuple marks extension tables that use the XCSP3 "*" shorthand.
// Expanding it would need the full domain of every scope variable, so the
// owning constraint is flagged as unsupported instead.
var errShortTuple = errors.New("short (*) tuples are not supported")

// errSetCondition marks conditions with set operands such as (in,{1,3,5}).
// Only interval operands are translatable, so the owning constraint is
// flagged as unsupported instead.
var errSetCondition = errors.New("set condition operands are not supported")

// recoverable reports whether err marks a construct that should be
// flagged rather than fail the document, returning the diagnostic note.
func recoverable(err error) (string, bool) {
	var unsup *UnsupportedExprError
	if errors.As(err, &unsup) {
		return unsup.Error(), true
	}
	if errors.Is(err, errShortTuple) {
		return errShortTuple.Error(), true
	}
	if errors.Is(err, errSetCondition) {
		return errSetCondition.Error(), true
	}
	return "", false
}
