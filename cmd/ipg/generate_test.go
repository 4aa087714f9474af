package main

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(fs)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerate_WritesParserNextToGrammar(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/foo.ipg", []byte(`foo : "x";`), 0o644))

	_, err := runCmd(t, fs, "generate", "/work/foo.ipg")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/work/foo.go")
	require.NoError(t, err)
	assert.Contains(t, string(content), "package work")
	assert.Contains(t, string(content), "parse_foo")
}

func TestGenerate_CustomOutputAndPackage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/foo.ipg", []byte(`foo : "x";`), 0o644))

	_, err := runCmd(t, fs, "generate", "/work/foo.ipg", "-o", "/out/parser.go", "-p", "mygrammar", "-v", "FooParser")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/out/parser.go")
	require.NoError(t, err)
	assert.Contains(t, string(content), "package mygrammar")
	assert.Contains(t, string(content), "type FooParser struct")
}

func TestGenerate_WithDriver(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/foo.ipg", []byte(`foo : "x";`), 0o644))

	_, err := runCmd(t, fs, "generate", "/work/foo.ipg", "--with-driver")
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/work/cmd/foo_driver.go")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGenerate_WithDriverUsesModuleImportPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/go.mod", []byte("module example.com/grammars\n\ngo 1.21\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/gen/foo.ipg", []byte(`foo : "x";`), 0o644))

	_, err := runCmd(t, fs, "generate", "/repo/gen/foo.ipg", "--with-driver")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/repo/gen/cmd/foo_driver.go")
	require.NoError(t, err)
	assert.Contains(t, string(content), `"example.com/grammars/gen"`)
}

func TestGenerate_WithDriverFallsBackWithoutModule(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/foo.ipg", []byte(`foo : "x";`), 0o644))

	_, err := runCmd(t, fs, "generate", "/work/foo.ipg", "--with-driver")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/work/cmd/foo_driver.go")
	require.NoError(t, err)
	assert.Contains(t, string(content), `gen "work"`)
}

func TestGenerate_DumpGrammarDoesNotWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/foo.ipg", []byte(`foo : "x";`), 0o644))

	out, err := runCmd(t, fs, "generate", "/work/foo.ipg", "--dump-grammar")
	require.NoError(t, err)
	assert.Contains(t, out, "foo")

	exists, err := afero.Exists(fs, "/work/foo.go")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerate_ValidationFailurePropagates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/bad.ipg", []byte(`foo : missing;`), 0o644))

	_, err := runCmd(t, fs, "generate", "/work/bad.ipg")
	assert.Error(t, err)
}

func TestGenerate_ParseErrorPropagates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/bad.ipg", []byte(`foo : "x"`), 0o644))

	_, err := runCmd(t, fs, "generate", "/work/bad.ipg")
	assert.Error(t, err)
}

func TestGenerate_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := runCmd(t, fs, "generate", "/work/nope.ipg")
	assert.Error(t, err)
}
