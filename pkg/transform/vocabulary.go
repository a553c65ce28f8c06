package transform

import "github.com/cspkit/xcsp2cpo/pkg/ir"

// Vocabulary describes what the output target can express. pkg/cpo
// implements it; depending on this interface instead of a concrete
// writer keeps the transformations target-agnostic.
type Vocabulary interface {
	// Supports reports whether the target renders the constraint kind
	// natively.
	Supports(kind ir.Kind) bool

	// SupportsImplication reports whether the target has a native
	// implication operator. Targets without one get imp(a,b) rewritten
	// to or(not(a),b).
	SupportsImplication() bool
}
