// Package transform lowers parsed instances into the shape a target
// vocabulary can express.
//
// # Stages
//
// Normalize resolves syntactic sugar and validates structure: array
// cells become variables with deterministic names, group templates are
// instantiated with their argument rows, and length/domain invariants
// are checked. Structural violations are *ir.MalformedInstanceError and
// abort the transformation.
//
// Decompose replaces constraints the vocabulary cannot express with
// equivalent supported ones (allEqual and ordered become chains of
// binary comparisons, channel becomes its pairwise linking predicates)
// and flags what cannot be decomposed, keeping the flagged constraint
// in place so reports and best-effort output can still name it.
// Decomposition is idempotent: running it again changes nothing.
//
// Rewrite normalizes expression trees target-side: operators without a
// counterpart in the output language are replaced by equivalent
// compositions, and nested conjunctions and disjunctions are flattened.
//
// Pipeline chains the three stages. The legacy mode runs normalization
// only, reproducing the instance almost verbatim for side-by-side
// comparison with older tooling.
package transform
