package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cspkit/xcsp2cpo/internal/state"
	"github.com/cspkit/xcsp2cpo/internal/testutil"
)

const simpleInstance = `
<instance format="XCSP3" type="CSP">
  <variables>
    <var id="x"> 1..10 </var>
    <var id="y"> 1..10 </var>
  </variables>
  <constraints>
    <intension> le(add(x,y),15) </intension>
  </constraints>
</instance>`

const unsupportedInstance = `
<instance format="XCSP3" type="CSP">
  <variables>
    <var id="x"> 1..10 </var>
    <var id="y"> 1..10 </var>
  </variables>
  <constraints>
    <intension> le(add(x,y),15) </intension>
    <cumulative>
      <origins> x y </origins>
      <lengths> 1 1 </lengths>
      <condition> (le,2) </condition>
    </cumulative>
  </constraints>
</instance>`

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_ConvertAll(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "simple.xml")
	writeFile(t, input, simpleInstance)

	e := newTestEngine(t, Config{
		OutDir:    filepath.Join(dir, "out"),
		StatePath: filepath.Join(dir, "state.db"),
	})

	summary, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.RunID)

	out, err := os.ReadFile(filepath.Join(dir, "out", "simple.cpo"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "x = intVar(1..10);")
	assert.Contains(t, string(out), "(x + y) <= 15;")

	run, err := e.Store().GetRun(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Converted)
}

func TestEngine_SkipUnchanged(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "simple.xml")
	writeFile(t, input, simpleInstance)

	e := newTestEngine(t, Config{
		OutDir:    filepath.Join(dir, "out"),
		StatePath: filepath.Join(dir, "state.db"),
	})

	first, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Converted)

	second, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Converted)
	assert.Equal(t, 1, second.Skipped)

	// Touching the content converts again.
	writeFile(t, input, simpleInstance+"\n")
	third, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 1, third.Converted)
}

func TestEngine_ForceReconverts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "simple.xml")
	writeFile(t, input, simpleInstance)

	e := newTestEngine(t, Config{
		OutDir:    filepath.Join(dir, "out"),
		StatePath: filepath.Join(dir, "state.db"),
		Force:     true,
	})

	_, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	second, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Converted)
	assert.Equal(t, 0, second.Skipped)
}

func TestEngine_UnsupportedConstraint(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cumulative.xml")
	writeFile(t, input, unsupportedInstance)

	e := newTestEngine(t, Config{OutDir: dir})

	summary, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, 1, summary.Incomplete)

	res := summary.Results[0]
	assert.Equal(t, state.ConversionIncomplete, res.Status)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "cumulative", string(res.Diagnostics[0].Kind))

	// Best-effort output still carries the supported constraint.
	out, err := os.ReadFile(filepath.Join(dir, "cumulative.cpo"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "(x + y) <= 15;")
	assert.Contains(t, string(out), "// unsupported: cumulative")
}

func TestEngine_StrictRefusesIncomplete(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cumulative.xml")
	writeFile(t, input, unsupportedInstance)

	e := newTestEngine(t, Config{OutDir: filepath.Join(dir, "out"), Strict: true})

	summary, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	_, statErr := os.Stat(filepath.Join(dir, "out", "cumulative.cpo"))
	assert.True(t, os.IsNotExist(statErr), "strict mode must not write output")
}

func TestEngine_MalformedInstanceFailsFileOnly(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.xml")
	bad := filepath.Join(dir, "bad.xml")
	writeFile(t, good, simpleInstance)
	writeFile(t, bad, `
		<instance format="XCSP3" type="CSP">
		  <variables>
		    <var id="x"> 5..1 </var>
		  </variables>
		</instance>`)

	e := newTestEngine(t, Config{OutDir: filepath.Join(dir, "out")})

	summary, err := e.ConvertAll(context.Background(), []string{bad, good})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, 1, summary.Failed)

	_, statErr := os.Stat(filepath.Join(dir, "out", "bad.cpo"))
	assert.True(t, os.IsNotExist(statErr), "malformed instance must produce no output")
}

func TestEngine_NoStateStore(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "simple.xml")
	writeFile(t, input, simpleInstance)

	e := newTestEngine(t, Config{OutDir: dir})
	require.Nil(t, e.Store())

	summary, err := e.ConvertAll(context.Background(), []string{input})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	assert.Empty(t, summary.RunID)
}

func TestEngine_OutputPath(t *testing.T) {
	e := newTestEngine(t, Config{})

	assert.Equal(t, filepath.Join("in", "a.cpo"), e.OutputPath(filepath.Join("in", "a.xml")))
	assert.Equal(t, filepath.Join("in", "b.cpo"), e.OutputPath(filepath.Join("in", "b.xml.lzma")))

	e2 := newTestEngine(t, Config{OutDir: "out"})
	assert.Equal(t, filepath.Join("out", "a.cpo"), e2.OutputPath(filepath.Join("in", "a.xml")))
}
