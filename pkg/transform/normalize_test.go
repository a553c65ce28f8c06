package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
	"github.com/cspkit/xcsp2cpo/pkg/parser"
)

func mustParse(t *testing.T, doc string) *ir.Instance {
	t.Helper()
	inst, _, err := parser.ParseString(doc)
	require.NoError(t, err)
	return inst
}

func TestNormalize_ArrayCells(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="m" size="[2][3]"> 0..4 </array>
		  </variables>
		</instance>`)
	require.NoError(t, Normalize(inst))

	arr, ok := inst.Array("m")
	require.True(t, ok)
	assert.Equal(t, []string{
		"m[0][0]", "m[0][1]", "m[0][2]",
		"m[1][0]", "m[1][1]", "m[1][2]",
	}, arr.Cells)

	v, ok := inst.Variable("m[1][2]")
	require.True(t, ok)
	assert.Equal(t, "m", v.Owner)
	assert.Equal(t, []ir.IntRange{{Lo: 0, Hi: 4}}, v.Domain.Ranges)
}

func TestNormalize_ArrayStartIndex(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[3]" startIndex="1"> 1..9 </array>
		  </variables>
		</instance>`)
	require.NoError(t, Normalize(inst))

	arr, _ := inst.Array("x")
	assert.Equal(t, []string{"x[1]", "x[2]", "x[3]"}, arr.Cells)
}

func TestNormalize_ArrayRefExpansion(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[4]"> 1..4 </array>
		  </variables>
		  <constraints>
		    <allDifferent> x[] </allDifferent>
		    <allDifferent> x[1..2] </allDifferent>
		  </constraints>
		</instance>`)
	require.NoError(t, Normalize(inst))

	full := inst.Constraints[0].(*ir.AllDifferent)
	require.Len(t, full.List, 4)
	assert.Equal(t, &ir.VarRef{Name: "x[0]"}, full.List[0])
	assert.Equal(t, &ir.VarRef{Name: "x[3]"}, full.List[3])

	slice := inst.Constraints[1].(*ir.AllDifferent)
	assert.Equal(t, []ir.Expr{&ir.VarRef{Name: "x[1]"}, &ir.VarRef{Name: "x[2]"}}, slice.List)
}

func TestNormalize_MatrixRowExpansion(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="m" size="[2][2]"> 0..3 </array>
		  </variables>
		  <constraints>
		    <allDifferent> m[1][] </allDifferent>
		  </constraints>
		</instance>`)
	require.NoError(t, Normalize(inst))

	row := inst.Constraints[0].(*ir.AllDifferent)
	assert.Equal(t, []ir.Expr{&ir.VarRef{Name: "m[1][0]"}, &ir.VarRef{Name: "m[1][1]"}}, row.List)
}

func TestNormalize_IndexOutOfBounds(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[4]"> 1..4 </array>
		  </variables>
		  <constraints>
		    <allDifferent> x[2..5] </allDifferent>
		  </constraints>
		</instance>`)
	err := Normalize(inst)
	require.Error(t, err)

	var merr *ir.MalformedInstanceError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Error(), "outside array")
}

func TestNormalize_UnknownArray(t *testing.T) {
	inst := ir.NewInstance(ir.CSP)
	inst.Constraints = []ir.Constraint{
		&ir.AllDifferent{List: []ir.Expr{&ir.ArrayRef{Name: "ghost"}}},
	}
	err := Normalize(inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown array")
}

func TestNormalize_GroupExpansion(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"> 1..9 </var>
		    <var id="y"> 1..9 </var>
		    <var id="z"> 1..9 </var>
		  </variables>
		  <constraints>
		    <group id="g">
		      <intension> lt(%0,%1) </intension>
		      <args> x y </args>
		      <args> y z </args>
		    </group>
		  </constraints>
		</instance>`)
	require.NoError(t, Normalize(inst))

	require.Len(t, inst.Constraints, 2)
	first, ok := inst.Constraints[0].(*ir.Intension)
	require.True(t, ok)
	assert.Equal(t, "g[0]", first.GetID())
	assert.Equal(t, &ir.Binary{Op: ir.OpLt, Left: &ir.VarRef{Name: "x"}, Right: &ir.VarRef{Name: "y"}}, first.Predicate)

	second := inst.Constraints[1].(*ir.Intension)
	assert.Equal(t, "g[1]", second.GetID())
	assert.Equal(t, &ir.Binary{Op: ir.OpLt, Left: &ir.VarRef{Name: "y"}, Right: &ir.VarRef{Name: "z"}}, second.Predicate)
}

func TestNormalize_GroupOverSum(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[2]"> 0..9 </array>
		    <array id="y" size="[2]"> 0..9 </array>
		  </variables>
		  <constraints>
		    <group>
		      <sum>
		        <list> %0 %1 </list>
		        <condition> (le,%2) </condition>
		      </sum>
		      <args> x[0] x[1] 10 </args>
		      <args> y[0] y[1] 12 </args>
		    </group>
		  </constraints>
		</instance>`)
	require.NoError(t, Normalize(inst))

	require.Len(t, inst.Constraints, 2)
	s := inst.Constraints[1].(*ir.Sum)
	assert.Equal(t, []ir.Expr{&ir.VarRef{Name: "y[0]"}, &ir.VarRef{Name: "y[1]"}}, s.Terms)
	assert.Equal(t, ir.RelLe, s.Cond.Op)
	assert.Equal(t, &ir.Const{Value: 12}, s.Cond.Bound)
}

func TestNormalize_GroupArrayRefArgument(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[3]"> 1..3 </array>
		    <array id="y" size="[3]"> 1..3 </array>
		  </variables>
		  <constraints>
		    <group>
		      <allDifferent> %0 </allDifferent>
		      <args> x[] </args>
		      <args> y[] </args>
		    </group>
		  </constraints>
		</instance>`)
	require.NoError(t, Normalize(inst))

	require.Len(t, inst.Constraints, 2)
	first := inst.Constraints[0].(*ir.AllDifferent)
	require.Len(t, first.List, 3)
	assert.Equal(t, &ir.VarRef{Name: "x[0]"}, first.List[0])
}

func TestNormalize_DanglingBinding(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"> 1..9 </var>
		    <var id="y"> 1..9 </var>
		  </variables>
		  <constraints>
		    <group>
		      <intension> lt(%0,%2) </intension>
		      <args> x y </args>
		    </group>
		  </constraints>
		</instance>`)
	err := Normalize(inst)
	require.Error(t, err)

	var merr *ir.MalformedInstanceError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Error(), "argument %2")
	assert.Contains(t, merr.Error(), "supplies 2")
}

func TestNormalize_EmptyDomain(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"></var>
		  </variables>
		</instance>`)
	err := Normalize(inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `variable "x" has an empty domain`)
}

func TestNormalize_SumCoefficientMismatch(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[3]"> 0..9 </array>
		  </variables>
		  <constraints>
		    <sum>
		      <list> x[] </list>
		      <coeffs> 1 2 </coeffs>
		      <condition> (le,20) </condition>
		    </sum>
		  </constraints>
		</instance>`)
	err := Normalize(inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coefficients")
}

func TestNormalize_InstantiationLengthMismatch(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"> 0..9 </var>
		    <var id="y"> 0..9 </var>
		  </variables>
		  <constraints>
		    <instantiation>
		      <list> x y </list>
		      <values> 1 2 3 </values>
		    </instantiation>
		  </constraints>
		</instance>`)
	err := Normalize(inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "values")
}

func TestNormalize_TupleArityMismatch(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"> 0..1 </var>
		    <var id="y"> 0..1 </var>
		  </variables>
		  <constraints>
		    <extension>
		      <list> x y </list>
		      <supports> (0,1,0) </supports>
		    </extension>
		  </constraints>
		</instance>`)
	err := Normalize(inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arity")
}

func TestNormalize_ObjectiveListExpansion(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="COP">
		  <variables>
		    <array id="x" size="[3]"> 0..9 </array>
		  </variables>
		  <objectives>
		    <minimize type="sum">
		      <list> x[] </list>
		    </minimize>
		  </objectives>
		</instance>`)
	require.NoError(t, Normalize(inst))

	agg, ok := inst.Objective.Target.(*ir.Aggregate)
	require.True(t, ok)
	require.Len(t, agg.Args, 3)
	assert.Equal(t, &ir.VarRef{Name: "x[2]"}, agg.Args[2])
}

func TestNormalize_UnknownVariable(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"> 0..3 </var>
		  </variables>
		  <constraints>
		    <intension> lt(x,ghost) </intension>
		  </constraints>
		</instance>`)

	err := Normalize(inst)
	require.Error(t, err)

	var merr *ir.MalformedInstanceError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Error(), `unknown variable "ghost"`)
}

func TestNormalize_ArrayNameInScalarPosition(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[2]"> 0..3 </array>
		    <var id="y"> 0..3 </var>
		  </variables>
		  <constraints>
		    <intension> lt(x,y) </intension>
		  </constraints>
		</instance>`)

	err := Normalize(inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scalar position")
}

func TestNormalize_Idempotent(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[3]"> 1..3 </array>
		  </variables>
		  <constraints>
		    <allDifferent> x[] </allDifferent>
		  </constraints>
		</instance>`)
	require.NoError(t, Normalize(inst))
	vars := len(inst.Variables)
	require.NoError(t, Normalize(inst))
	assert.Equal(t, vars, len(inst.Variables))
}
