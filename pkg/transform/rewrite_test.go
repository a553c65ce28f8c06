package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

func rv(name string) *ir.VarRef { return &ir.VarRef{Name: name} }

func rewriteOne(t *testing.T, pred ir.Expr, vocab Vocabulary) ir.Expr {
	t.Helper()
	inst := ir.NewInstance(ir.CSP)
	inst.Constraints = []ir.Constraint{&ir.Intension{Predicate: pred}}
	Rewrite(inst, vocab)
	require.Len(t, inst.Constraints, 1)
	return inst.Constraints[0].(*ir.Intension).Predicate
}

func TestRewrite_NegationBecomesSubtraction(t *testing.T) {
	got := rewriteOne(t,
		&ir.Binary{Op: ir.OpEq, Left: &ir.Unary{Op: ir.OpNeg, X: rv("x")}, Right: rv("y")},
		optimizerLike(),
	)
	assert.Equal(t, &ir.Binary{
		Op:    ir.OpEq,
		Left:  &ir.Binary{Op: ir.OpSub, Left: &ir.Const{Value: 0}, Right: rv("x")},
		Right: rv("y"),
	}, got)
}

func TestRewrite_DistanceBecomesAbsoluteDifference(t *testing.T) {
	got := rewriteOne(t,
		&ir.Binary{Op: ir.OpLe, Left: &ir.Binary{Op: ir.OpDist, Left: rv("x"), Right: rv("y")}, Right: &ir.Const{Value: 3}},
		optimizerLike(),
	)
	assert.Equal(t, &ir.Binary{
		Op:    ir.OpLe,
		Left:  &ir.Unary{Op: ir.OpAbs, X: &ir.Binary{Op: ir.OpSub, Left: rv("x"), Right: rv("y")}},
		Right: &ir.Const{Value: 3},
	}, got)
}

func TestRewrite_ImplicationKeptWhenNative(t *testing.T) {
	pred := &ir.Binary{Op: ir.OpImp, Left: rv("a"), Right: rv("b")}
	got := rewriteOne(t, pred, optimizerLike())
	assert.Equal(t, pred, got)
}

func TestRewrite_ImplicationLoweredOtherwise(t *testing.T) {
	vocab := optimizerLike()
	vocab.noImp = true

	got := rewriteOne(t, &ir.Binary{Op: ir.OpImp, Left: rv("a"), Right: rv("b")}, vocab)
	assert.Equal(t, &ir.NAry{Op: ir.OpOr, Args: []ir.Expr{
		&ir.Unary{Op: ir.OpNot, X: rv("a")},
		rv("b"),
	}}, got)
}

func TestRewrite_FlattensNestedConnectives(t *testing.T) {
	got := rewriteOne(t,
		&ir.NAry{Op: ir.OpOr, Args: []ir.Expr{
			&ir.NAry{Op: ir.OpOr, Args: []ir.Expr{rv("a"), rv("b")}},
			rv("c"),
		}},
		optimizerLike(),
	)
	assert.Equal(t, &ir.NAry{Op: ir.OpOr, Args: []ir.Expr{rv("a"), rv("b"), rv("c")}}, got)

	got = rewriteOne(t,
		&ir.NAry{Op: ir.OpAnd, Args: []ir.Expr{
			&ir.NAry{Op: ir.OpAnd, Args: []ir.Expr{rv("p"), rv("q")}},
			&ir.NAry{Op: ir.OpAnd, Args: []ir.Expr{rv("r"), rv("s")}},
		}},
		optimizerLike(),
	)
	assert.Equal(t, &ir.NAry{Op: ir.OpAnd, Args: []ir.Expr{rv("p"), rv("q"), rv("r"), rv("s")}}, got)
}

func TestRewrite_MixedConnectivesStayNested(t *testing.T) {
	got := rewriteOne(t,
		&ir.NAry{Op: ir.OpOr, Args: []ir.Expr{
			&ir.NAry{Op: ir.OpAnd, Args: []ir.Expr{rv("a"), rv("b")}},
			rv("c"),
		}},
		optimizerLike(),
	)
	assert.Equal(t, &ir.NAry{Op: ir.OpOr, Args: []ir.Expr{
		&ir.NAry{Op: ir.OpAnd, Args: []ir.Expr{rv("a"), rv("b")}},
		rv("c"),
	}}, got)
}

func TestRewrite_RulesCompose(t *testing.T) {
	// neg(dist(x, y)) needs both rules, inner first.
	got := rewriteOne(t,
		&ir.Binary{Op: ir.OpEq,
			Left:  &ir.Unary{Op: ir.OpNeg, X: &ir.Binary{Op: ir.OpDist, Left: rv("x"), Right: rv("y")}},
			Right: rv("z")},
		optimizerLike(),
	)
	assert.Equal(t, &ir.Binary{Op: ir.OpEq,
		Left: &ir.Binary{Op: ir.OpSub,
			Left:  &ir.Const{Value: 0},
			Right: &ir.Unary{Op: ir.OpAbs, X: &ir.Binary{Op: ir.OpSub, Left: rv("x"), Right: rv("y")}}},
		Right: rv("z"),
	}, got)
}

func TestRewrite_ConditionBound(t *testing.T) {
	inst := ir.NewInstance(ir.CSP)
	inst.Constraints = []ir.Constraint{
		&ir.Sum{
			Terms: []ir.Expr{rv("x")},
			Cond:  ir.Condition{Op: ir.RelLe, Bound: &ir.Unary{Op: ir.OpNeg, X: rv("y")}},
		},
	}
	Rewrite(inst, optimizerLike())

	sum := inst.Constraints[0].(*ir.Sum)
	assert.Equal(t, &ir.Binary{Op: ir.OpSub, Left: &ir.Const{Value: 0}, Right: rv("y")}, sum.Cond.Bound)
	assert.Equal(t, ir.RelLe, sum.Cond.Op)
}

func TestRewrite_ObjectiveTarget(t *testing.T) {
	inst := ir.NewInstance(ir.COP)
	inst.Objective = &ir.Objective{
		Minimize: true,
		Target:   &ir.Binary{Op: ir.OpDist, Left: rv("x"), Right: rv("y")},
	}
	Rewrite(inst, optimizerLike())

	assert.Equal(t, &ir.Unary{Op: ir.OpAbs, X: &ir.Binary{Op: ir.OpSub, Left: rv("x"), Right: rv("y")}}, inst.Objective.Target)
	assert.True(t, inst.Objective.Minimize)
}

func TestRewrite_UnsupportedPassesThrough(t *testing.T) {
	u := &ir.Unsupported{RawKind: "circuit", List: []ir.Expr{rv("x")}}
	inst := ir.NewInstance(ir.CSP)
	inst.Constraints = []ir.Constraint{u}
	Rewrite(inst, optimizerLike())
	assert.Same(t, u, inst.Constraints[0])
}

func TestRewrite_Idempotent(t *testing.T) {
	inst := ir.NewInstance(ir.CSP)
	inst.Constraints = []ir.Constraint{
		&ir.Intension{Predicate: &ir.Binary{Op: ir.OpEq, Left: &ir.Unary{Op: ir.OpNeg, X: rv("x")}, Right: rv("y")}},
		&ir.Intension{Predicate: &ir.NAry{Op: ir.OpOr, Args: []ir.Expr{
			&ir.NAry{Op: ir.OpOr, Args: []ir.Expr{rv("a"), rv("b")}},
			&ir.Binary{Op: ir.OpImp, Left: rv("p"), Right: rv("q")},
		}}},
	}

	Rewrite(inst, optimizerLike())
	once := append([]ir.Constraint(nil), inst.Constraints...)
	Rewrite(inst, optimizerLike())
	assert.Equal(t, once, inst.Constraints)
}
