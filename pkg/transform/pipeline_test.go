package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

func TestPipeline_EndToEnd(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[3]"> 1..5 </array>
		    <var id="y"> 0..9 </var>
		  </variables>
		  <constraints>
		    <allEqual> x[] </allEqual>
		    <intension> eq(neg(x[0]),y) </intension>
		  </constraints>
		</instance>`)

	diags, err := Pipeline{Vocab: optimizerLike()}.Transform(inst)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.False(t, inst.Incomplete)

	// allEqual over three cells becomes two chained equalities, then
	// the intension follows with its negation lowered.
	require.Len(t, inst.Constraints, 3)
	first := inst.Constraints[0].(*ir.Intension).Predicate
	assert.Equal(t, &ir.Binary{Op: ir.OpEq, Left: rv("x[0]"), Right: rv("x[1]")}, first)
	second := inst.Constraints[1].(*ir.Intension).Predicate
	assert.Equal(t, &ir.Binary{Op: ir.OpEq, Left: rv("x[1]"), Right: rv("x[2]")}, second)
	third := inst.Constraints[2].(*ir.Intension).Predicate
	assert.Equal(t, &ir.Binary{
		Op:    ir.OpEq,
		Left:  &ir.Binary{Op: ir.OpSub, Left: &ir.Const{Value: 0}, Right: rv("x[0]")},
		Right: rv("y"),
	}, third)
}

func TestPipeline_LegacyModeStopsAfterNormalize(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="x" size="[3]"> 1..5 </array>
		  </variables>
		  <constraints>
		    <allEqual> x[] </allEqual>
		    <intension> eq(neg(x[0]),x[1]) </intension>
		  </constraints>
		</instance>`)

	diags, err := Pipeline{Vocab: optimizerLike(), Legacy: true}.Transform(inst)
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Len(t, inst.Constraints, 2)
	ae, ok := inst.Constraints[0].(*ir.AllEqual)
	require.True(t, ok, "legacy mode keeps structural constraints intact")
	assert.Equal(t, vars("x[0]", "x[1]", "x[2]"), ae.List)

	pred := inst.Constraints[1].(*ir.Intension).Predicate.(*ir.Binary)
	assert.Equal(t, &ir.Unary{Op: ir.OpNeg, X: rv("x[0]")}, pred.Left, "legacy mode skips operator rewriting")
}

func TestPipeline_UnsupportedConstraintReported(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="a"> 0..3 </var>
		    <var id="b"> 0..3 </var>
		  </variables>
		  <constraints>
		    <circuit> a b </circuit>
		    <intension> lt(a,b) </intension>
		  </constraints>
		</instance>`)

	diags, err := Pipeline{Vocab: optimizerLike()}.Transform(inst)
	require.NoError(t, err)
	assert.True(t, inst.Incomplete)
	require.Len(t, diags, 1)
	assert.Equal(t, ir.SeverityWarning, diags[0].Severity)
	assert.Equal(t, ir.Kind("circuit"), diags[0].Kind)

	require.Len(t, inst.Constraints, 2)
	assert.IsType(t, &ir.Unsupported{}, inst.Constraints[0])
	assert.IsType(t, &ir.Intension{}, inst.Constraints[1])
}

func TestPipeline_NormalizeFailureAborts(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"> 0..3 </var>
		  </variables>
		  <constraints>
		    <allDifferent> x y </allDifferent>
		  </constraints>
		</instance>`)

	_, err := Pipeline{Vocab: optimizerLike()}.Transform(inst)
	require.Error(t, err)

	var merr *ir.MalformedInstanceError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Error(), `unknown variable "y"`)
}

func TestPipeline_ChannelLengthFailureAborts(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <array id="a" size="[3]"> 0..2 </array>
		    <array id="b" size="[2]"> 0..1 </array>
		  </variables>
		  <constraints>
		    <channel>
		      <list> a[] </list>
		      <list> b[] </list>
		    </channel>
		  </constraints>
		</instance>`)

	_, err := Pipeline{Vocab: optimizerLike()}.Transform(inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched lengths")
}

func TestPipeline_ObjectiveSurvives(t *testing.T) {
	inst := mustParse(t, `
		<instance format="XCSP3" type="COP">
		  <variables>
		    <var id="x"> 0..9 </var>
		    <var id="y"> 0..9 </var>
		  </variables>
		  <constraints>
		    <intension> le(x,y) </intension>
		  </constraints>
		  <objectives>
		    <minimize> dist(x,y) </minimize>
		  </objectives>
		</instance>`)

	_, err := Pipeline{Vocab: optimizerLike()}.Transform(inst)
	require.NoError(t, err)

	require.NotNil(t, inst.Objective)
	assert.True(t, inst.Objective.Minimize)
	assert.Equal(t, &ir.Unary{Op: ir.OpAbs, X: &ir.Binary{Op: ir.OpSub, Left: rv("x"), Right: rv("y")}}, inst.Objective.Target)
}
