package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompileFilesUnifiesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.cue", adderSrc)
	b := writeFile(t, dir, "b.cue", compoundSrc)

	specs, err := CompileFiles(a, b)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Adder", specs[0].Name)
	assert.Equal(t, "Pair", specs[1].Name)
}

func TestCompileFilesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := CompileFiles()
	assert.Error(t, err)

	_, err = CompileFiles(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.cue", "nodetype: {\n")
	_, err = CompileFiles(bad)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, bad, ce.Pos.Filename())

	// Conflicting declarations of the same node type fail to unify.
	c1 := writeFile(t, dir, "c1.cue", `nodetype: X: slots: a: direction: "in"`)
	c2 := writeFile(t, dir, "c2.cue", `nodetype: X: slots: a: direction: "out"`)
	_, err = CompileFiles(c1, c2)
	assert.Error(t, err)
}

func TestCompileDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nested/b.cue", compoundSrc)
	writeFile(t, dir, "a.cue", adderSrc)
	writeFile(t, dir, "README.md", "ignored")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "nested", "b.cue")}, files)

	specs, err := CompileDir(dir)
	require.NoError(t, err)
	assert.Len(t, specs, 2)

	_, err = CompileDir(t.TempDir())
	assert.Error(t, err)
}
