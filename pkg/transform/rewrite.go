package transform

import "github.com/cspkit/xcsp2cpo/pkg/ir"

// Rewrite replaces operators without a counterpart in the target
// language by equivalent compositions and flattens nested conjunctions
// and disjunctions. The pass is total: it never fails and leaves
// unrelated nodes untouched.
//
// Rules:
//
//	neg(x)     ->  sub(0, x)
//	dist(x,y)  ->  abs(sub(x, y))
//	imp(a,b)   ->  or(not(a), b)   unless the target has implication
//	and/or     ->  flattened n-ary forms
func Rewrite(inst *ir.Instance, vocab Vocabulary) {
	r := rewriter{keepImp: vocab != nil && vocab.SupportsImplication()}
	for i, c := range inst.Constraints {
		inst.Constraints[i] = r.constraint(c)
	}
	if inst.Objective != nil {
		inst.Objective.Target = r.expr(inst.Objective.Target)
	}
}

type rewriter struct {
	keepImp bool
}

func (r rewriter) constraint(c ir.Constraint) ir.Constraint {
	switch c := c.(type) {
	case *ir.Intension:
		return &ir.Intension{ConstraintInfo: c.ConstraintInfo, Predicate: r.expr(c.Predicate)}
	case *ir.Extension:
		return &ir.Extension{ConstraintInfo: c.ConstraintInfo, Scope: r.list(c.Scope), Tuples: c.Tuples, Conflicts: c.Conflicts}
	case *ir.AllDifferent:
		return &ir.AllDifferent{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Except: c.Except}
	case *ir.AllEqual:
		return &ir.AllEqual{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List)}
	case *ir.Ordered:
		return &ir.Ordered{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Op: c.Op}
	case *ir.Sum:
		return &ir.Sum{ConstraintInfo: c.ConstraintInfo, Terms: r.list(c.Terms), Coeffs: c.Coeffs, Cond: r.condition(c.Cond)}
	case *ir.Count:
		return &ir.Count{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Value: r.expr(c.Value), Cond: r.condition(c.Cond)}
	case *ir.NValues:
		return &ir.NValues{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Cond: r.condition(c.Cond)}
	case *ir.Cardinality:
		return &ir.Cardinality{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Values: c.Values, Occurs: r.list(c.Occurs)}
	case *ir.Minimum:
		return &ir.Minimum{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Cond: r.condition(c.Cond)}
	case *ir.Maximum:
		return &ir.Maximum{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Cond: r.condition(c.Cond)}
	case *ir.Element:
		return &ir.Element{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Index: r.expr(c.Index), Value: r.expr(c.Value)}
	case *ir.Channel:
		return &ir.Channel{ConstraintInfo: c.ConstraintInfo, A: r.list(c.A), B: r.list(c.B)}
	case *ir.Instantiation:
		return &ir.Instantiation{ConstraintInfo: c.ConstraintInfo, List: r.list(c.List), Values: c.Values}
	default:
		// Unsupported and Group nodes pass through untouched
		return c
	}
}

func (r rewriter) list(list []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, len(list))
	for i, e := range list {
		out[i] = r.expr(e)
	}
	return out
}

func (r rewriter) condition(c ir.Condition) ir.Condition {
	if c.Bound == nil {
		return c
	}
	return ir.Condition{Op: c.Op, Bound: r.expr(c.Bound), Lo: c.Lo, Hi: c.Hi}
}

// expr rewrites bottom-up, so every rule sees already-rewritten
// operands and a single pass reaches the fixpoint.
func (r rewriter) expr(e ir.Expr) ir.Expr {
	switch e := e.(type) {
	case *ir.Unary:
		x := r.expr(e.X)
		if e.Op == ir.OpNeg {
			return &ir.Binary{Op: ir.OpSub, Left: &ir.Const{Value: 0}, Right: x}
		}
		return &ir.Unary{Op: e.Op, X: x}
	case *ir.Binary:
		l := r.expr(e.Left)
		rt := r.expr(e.Right)
		switch e.Op {
		case ir.OpDist:
			return &ir.Unary{Op: ir.OpAbs, X: &ir.Binary{Op: ir.OpSub, Left: l, Right: rt}}
		case ir.OpImp:
			if r.keepImp {
				return &ir.Binary{Op: ir.OpImp, Left: l, Right: rt}
			}
			return flatten(ir.OpOr, []ir.Expr{&ir.Unary{Op: ir.OpNot, X: l}, rt})
		case ir.OpAnd, ir.OpOr:
			return flatten(e.Op, []ir.Expr{l, rt})
		default:
			return &ir.Binary{Op: e.Op, Left: l, Right: rt}
		}
	case *ir.NAry:
		args := r.list(e.Args)
		if e.Op == ir.OpAnd || e.Op == ir.OpOr {
			return flatten(e.Op, args)
		}
		return &ir.NAry{Op: e.Op, Args: args}
	case *ir.Conditional:
		return &ir.Conditional{Cond: r.expr(e.Cond), Then: r.expr(e.Then), Else: r.expr(e.Else)}
	case *ir.Aggregate:
		return &ir.Aggregate{Kind: e.Kind, Args: r.list(e.Args), Coeffs: e.Coeffs}
	default:
		return e
	}
}

// flatten splices operands of the same connective into one n-ary node.
// Operands are already rewritten, so one level of splicing suffices.
func flatten(op ir.Op, args []ir.Expr) ir.Expr {
	flat := make([]ir.Expr, 0, len(args))
	for _, a := range args {
		if n, ok := a.(*ir.NAry); ok && n.Op == op {
			flat = append(flat, n.Args...)
			continue
		}
		flat = append(flat, a)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &ir.NAry{Op: op, Args: flat}
}
