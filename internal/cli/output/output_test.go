package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer_UnknownModeFallsBack(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, Mode("csv"))
	// A buffer is not a terminal, so auto resolves to markdown.
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestEffectiveMode_Explicit(t *testing.T) {
	for _, mode := range []Mode{ModeText, ModeMarkdown, ModeJSON, ModeYAML} {
		r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, mode)
		assert.Equal(t, mode, r.EffectiveMode())
	}
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &bytes.Buffer{}, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"converted": 2}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["converted"])
}

func TestRenderer_YAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &bytes.Buffer{}, ModeYAML)

	require.NoError(t, r.YAML(map[string]string{"status": "completed"}))
	assert.Contains(t, buf.String(), "status: completed")
}

func TestRenderer_PrintlnPrintf(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Println("hello")
	r.Printf("%d files\n", 3)
	r.Errorf("warn: %s\n", "x")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{"hello", "3 files"}, lines)
	assert.Equal(t, "warn: x\n", errOut.String())
}
