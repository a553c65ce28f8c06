package cpo

import (
	"sort"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// renderFunc renders one constraint as complete output statements, one
// per line. An empty slice is legal and emits nothing.
type renderFunc func(p *printer, c ir.Constraint) ([]string, error)

// Target describes an output language: the constraint kinds it prints
// natively, the kinds it prints by expanding into several statements,
// and whether implication is an operator. The transformation pipeline
// consults Supports to decide what to decompose, so a kind registered
// as an expansion is still lowered whenever the pipeline runs; the
// expansion renderer only matters when a caller writes an instance the
// pipeline never touched.
type Target struct {
	name        string
	native      map[ir.Kind]renderFunc
	expansions  map[ir.Kind]renderFunc
	implication bool
}

// Name returns the target name.
func (t *Target) Name() string { return t.name }

// Supports reports whether the target prints the kind natively.
func (t *Target) Supports(k ir.Kind) bool {
	_, ok := t.native[k]
	return ok
}

// SupportsImplication reports whether imp(a,b) has a direct operator.
func (t *Target) SupportsImplication() bool { return t.implication }

// Kinds returns the natively printable kinds, sorted.
func (t *Target) Kinds() []ir.Kind {
	out := make([]ir.Kind, 0, len(t.native))
	for k := range t.native {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Expansions returns the kinds printed by expansion, sorted.
func (t *Target) Expansions() []ir.Kind {
	out := make([]ir.Kind, 0, len(t.expansions))
	for k := range t.expansions {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Target) renderer(k ir.Kind) (renderFunc, bool) {
	if fn, ok := t.native[k]; ok {
		return fn, true
	}
	fn, ok := t.expansions[k]
	return fn, ok
}

// builder assembles a Target. Registration happens in this package, so
// the fluent surface stays unexported.
type builder struct {
	t *Target
}

func newTarget(name string) *builder {
	return &builder{t: &Target{
		name:       name,
		native:     make(map[ir.Kind]renderFunc),
		expansions: make(map[ir.Kind]renderFunc),
	}}
}

// constraint registers a natively printable kind.
func (b *builder) constraint(k ir.Kind, fn renderFunc) *builder {
	b.t.native[k] = fn
	return b
}

// expansion registers a kind printed by expanding into several
// statements.
func (b *builder) expansion(k ir.Kind, fn renderFunc) *builder {
	b.t.expansions[k] = fn
	return b
}

func (b *builder) withImplication() *builder {
	b.t.implication = true
	return b
}

func (b *builder) build() *Target { return b.t }

// Optimizer is the CP Optimizer text-format target. allEqual, ordered
// and channel have no native statement and print as expansions; every
// other registered kind maps onto one CP Optimizer construct.
var Optimizer = newTarget("cpoptimizer").
	constraint(ir.KindIntension, renderIntension).
	constraint(ir.KindExtension, renderExtension).
	constraint(ir.KindAllDifferent, renderAllDifferent).
	constraint(ir.KindSum, renderSum).
	constraint(ir.KindCount, renderCount).
	constraint(ir.KindNValues, renderNValues).
	constraint(ir.KindCardinality, renderCardinality).
	constraint(ir.KindMinimum, renderMinimum).
	constraint(ir.KindMaximum, renderMaximum).
	constraint(ir.KindElement, renderElement).
	constraint(ir.KindInstantiation, renderInstantiation).
	expansion(ir.KindAllEqual, renderAllEqual).
	expansion(ir.KindOrdered, renderOrdered).
	expansion(ir.KindChannel, renderChannel).
	withImplication().
	build()
