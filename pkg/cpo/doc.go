// Package cpo renders constraint instances in the IBM CP Optimizer
// text format.
//
// The package is organized around a [Target]: a registry of the
// constraint kinds the output language prints natively, the kinds it
// prints by expanding into several statements, and the operators it
// carries. [Optimizer] is the built-in CP Optimizer target; it doubles
// as the vocabulary the transformation pipeline consults when deciding
// what to decompose.
//
// Rendering is best-effort: constraints flagged as unsupported come out
// as marker comments so the surrounding model stays readable. Callers
// that must not emit partial models check Instance.Incomplete before
// writing.
package cpo
