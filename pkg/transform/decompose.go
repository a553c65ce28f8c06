package transform

import (
	"fmt"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// Decompose lowers constraints the vocabulary cannot express into
// supported ones, recursing over the products until everything is
// either supported or flagged. Flagged constraints stay in the instance
// as Unsupported nodes and mark it incomplete; only structural
// violations (mismatched channel lists) abort with an error.
func Decompose(inst *ir.Instance, vocab Vocabulary) ([]ir.Diagnostic, error) {
	var diags []ir.Diagnostic
	out := make([]ir.Constraint, 0, len(inst.Constraints))
	for _, c := range inst.Constraints {
		cs, err := decomposeTree(inst, c, vocab, &diags)
		if err != nil {
			return diags, err
		}
		out = append(out, cs...)
	}
	inst.Constraints = out
	return diags, nil
}

// decomposeTree decomposes one constraint and re-checks its products,
// since a decomposition may emit kinds the vocabulary rejects as well.
func decomposeTree(inst *ir.Instance, c ir.Constraint, vocab Vocabulary, diags *[]ir.Diagnostic) ([]ir.Constraint, error) {
	switch c := c.(type) {
	case *ir.Unsupported:
		*diags = append(*diags, unsupportedDiag(c.GetID(), c.Kind(), c.Note))
		inst.Incomplete = true
		return []ir.Constraint{c}, nil

	case *ir.AllEqual:
		if vocab.Supports(ir.KindAllEqual) {
			return []ir.Constraint{c}, nil
		}
		return recheck(inst, decomposeAllEqual(c), vocab, diags)

	case *ir.Ordered:
		if vocab.Supports(ir.KindOrdered) {
			return []ir.Constraint{c}, nil
		}
		return recheck(inst, decomposeOrdered(c), vocab, diags)

	case *ir.Channel:
		if len(c.A) != len(c.B) {
			return nil, &ir.MalformedInstanceError{
				Subject: subjectOf(c.GetID(), c.Kind()),
				Message: fmt.Sprintf(ir.ErrChannelLength, len(c.A), len(c.B)),
			}
		}
		if vocab.Supports(ir.KindChannel) {
			return []ir.Constraint{c}, nil
		}
		return recheck(inst, decomposeChannel(c), vocab, diags)

	case *ir.AllDifferent:
		// the exception list has no target form; flag rather than
		// silently dropping it
		if len(c.Except) > 0 {
			return flag(inst, c, "allDifferent <except> values are not supported", diags)
		}
		return keepOrFlag(inst, c, vocab, diags)

	default:
		return keepOrFlag(inst, c, vocab, diags)
	}
}

// recheck runs decomposition products back through the tree.
func recheck(inst *ir.Instance, parts []ir.Constraint, vocab Vocabulary, diags *[]ir.Diagnostic) ([]ir.Constraint, error) {
	out := make([]ir.Constraint, 0, len(parts))
	for _, part := range parts {
		cs, err := decomposeTree(inst, part, vocab, diags)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

// keepOrFlag retains a supported constraint and flags anything else.
func keepOrFlag(inst *ir.Instance, c ir.Constraint, vocab Vocabulary, diags *[]ir.Diagnostic) ([]ir.Constraint, error) {
	if vocab.Supports(c.Kind()) {
		return []ir.Constraint{c}, nil
	}
	return flag(inst, c, "", diags)
}

func flag(inst *ir.Instance, c ir.Constraint, note string, diags *[]ir.Diagnostic) ([]ir.Constraint, error) {
	id := constraintID(c)
	*diags = append(*diags, unsupportedDiag(id, c.Kind(), note))
	inst.Incomplete = true
	return []ir.Constraint{&ir.Unsupported{
		ConstraintInfo: ir.ConstraintInfo{ID: id},
		RawKind:        string(c.Kind()),
		Note:           note,
		List:           operandsOf(c),
	}}, nil
}

func unsupportedDiag(id string, kind ir.Kind, note string) ir.Diagnostic {
	msg := note
	if msg == "" {
		msg = fmt.Sprintf("constraint kind %q is not supported by the target", string(kind))
	}
	return ir.Diagnostic{
		Constraint: subjectOf(id, kind),
		Kind:       kind,
		Severity:   ir.SeverityWarning,
		Message:    msg,
	}
}

func subjectOf(id string, kind ir.Kind) string {
	if id != "" {
		return id
	}
	return string(kind)
}

// ---------- Decomposition rules ----------

// decomposeAllEqual chains adjacent pairs: e1 == e2, e2 == e3, ...
func decomposeAllEqual(c *ir.AllEqual) []ir.Constraint {
	if len(c.List) < 2 {
		return nil
	}
	out := make([]ir.Constraint, 0, len(c.List)-1)
	for i := 0; i+1 < len(c.List); i++ {
		out = append(out, &ir.Intension{
			ConstraintInfo: ir.ConstraintInfo{ID: derivedID(c.GetID(), i)},
			Predicate:      &ir.Binary{Op: ir.OpEq, Left: c.List[i], Right: c.List[i+1]},
		})
	}
	return out
}

// decomposeOrdered chains adjacent pairs under the declared operator.
func decomposeOrdered(c *ir.Ordered) []ir.Constraint {
	if len(c.List) < 2 {
		return nil
	}
	op, ok := relToOp(c.Op)
	if !ok {
		return nil
	}
	out := make([]ir.Constraint, 0, len(c.List)-1)
	for i := 0; i+1 < len(c.List); i++ {
		out = append(out, &ir.Intension{
			ConstraintInfo: ir.ConstraintInfo{ID: derivedID(c.GetID(), i)},
			Predicate:      &ir.Binary{Op: op, Left: c.List[i], Right: c.List[i+1]},
		})
	}
	return out
}

// decomposeChannel emits the pairwise linking predicates
// (A[i] == j) == (B[j] == i) for every position pair.
func decomposeChannel(c *ir.Channel) []ir.Constraint {
	out := make([]ir.Constraint, 0, len(c.A)*len(c.B))
	n := 0
	for i, a := range c.A {
		for j, b := range c.B {
			out = append(out, &ir.Intension{
				ConstraintInfo: ir.ConstraintInfo{ID: derivedID(c.GetID(), n)},
				Predicate: &ir.Binary{
					Op:    ir.OpEq,
					Left:  &ir.Binary{Op: ir.OpEq, Left: a, Right: &ir.Const{Value: j}},
					Right: &ir.Binary{Op: ir.OpEq, Left: b, Right: &ir.Const{Value: i}},
				},
			})
			n++
		}
	}
	return out
}

// relToOp maps a condition operator onto the expression operator used in
// chained comparisons.
func relToOp(r ir.RelOp) (ir.Op, bool) {
	switch r {
	case ir.RelLt:
		return ir.OpLt, true
	case ir.RelLe:
		return ir.OpLe, true
	case ir.RelGt:
		return ir.OpGt, true
	case ir.RelGe:
		return ir.OpGe, true
	case ir.RelEq:
		return ir.OpEq, true
	case ir.RelNe:
		return ir.OpNe, true
	default:
		return ir.OpEq, false
	}
}

// operandsOf recovers the variable operands of a constraint for an
// Unsupported retention, so reports can still name what was involved.
func operandsOf(c ir.Constraint) []ir.Expr {
	switch c := c.(type) {
	case *ir.Intension:
		return nil
	case *ir.Extension:
		return c.Scope
	case *ir.AllDifferent:
		return c.List
	case *ir.AllEqual:
		return c.List
	case *ir.Ordered:
		return c.List
	case *ir.Sum:
		return c.Terms
	case *ir.Count:
		return c.List
	case *ir.NValues:
		return c.List
	case *ir.Cardinality:
		return c.List
	case *ir.Minimum:
		return c.List
	case *ir.Maximum:
		return c.List
	case *ir.Element:
		return c.List
	case *ir.Channel:
		return append(append([]ir.Expr{}, c.A...), c.B...)
	case *ir.Instantiation:
		return c.List
	case *ir.Unsupported:
		return c.List
	default:
		return nil
	}
}

func constraintID(c ir.Constraint) string {
	type ident interface{ GetID() string }
	if id, ok := c.(ident); ok {
		return id.GetID()
	}
	return ""
}
