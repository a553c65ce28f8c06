// Package ir defines the intermediate representation shared by the XCSP3
// parser, the transformation pipeline, and the CP Optimizer writer.
//
// # Model
//
// An Instance owns integer Variables (scalars plus flattened array cells),
// an ordered list of Constraints, and at most one Objective. Constraints
// and expressions are closed tagged unions: consumers dispatch with a type
// switch and handle every variant, so a new kind breaks every switch that
// has not been taught about it rather than sliding through silently.
//
// # Expressions
//
// Expr trees are immutable once built. Transformations never mutate a
// subtree in place; they build replacement nodes and assemble new
// constraints around them, so pipeline stages may share unchanged
// subtrees freely.
//
// # Errors and Diagnostics
//
// Structural violations (empty domains, mismatched channel lists, dangling
// template bindings, duplicate variables, multiple objectives) are fatal
// and reported as *MalformedInstanceError. Constructs the target language
// cannot express are not errors: they surface as Diagnostics, the
// offending constraint stays in the instance as an Unsupported node, and
// the instance is marked incomplete.
package ir
