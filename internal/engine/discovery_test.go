package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverInputs_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.xml"), "<instance/>")
	writeFile(t, filepath.Join(dir, "a.xml"), "<instance/>")
	writeFile(t, filepath.Join(dir, "nested", "c.xml.lzma"), "raw")
	writeFile(t, filepath.Join(dir, "readme.md"), "not an instance")
	writeFile(t, filepath.Join(dir, ".cache", "d.xml"), "<instance/>")

	inputs, err := DiscoverInputs([]string{dir})
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, filepath.Join(dir, "a.xml"), inputs[0])
	assert.Equal(t, filepath.Join(dir, "b.xml"), inputs[1])
	assert.Equal(t, filepath.Join(dir, "nested", "c.xml.lzma"), inputs[2])
}

func TestDiscoverInputs_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.xml")
	writeFile(t, a, "<instance/>")

	inputs, err := DiscoverInputs([]string{a, a})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, inputs, "duplicates collapse")
}

func TestDiscoverInputs_RejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "model.json")
	writeFile(t, bad, "{}")

	_, err := DiscoverInputs([]string{bad})
	require.Error(t, err)
}

func TestDiscoverInputs_MissingPath(t *testing.T) {
	_, err := DiscoverInputs([]string{filepath.Join(t.TempDir(), "nope.xml")})
	require.Error(t, err)
}
