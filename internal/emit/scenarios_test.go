package emit

import (
	"encoding/json"
	"go/format"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEmit_GeneratedSourceIsValidGo runs every emitted parser through
// go/format.Source, the stdlib gofmt entry point, the way
// alecthomas/participle's TestGenerate shells out to gofmt on freshly
// generated code before trusting it further. A malformed template edit
// (a stray brace, an unbalanced quote) fails here instead of only
// showing up as a substring assertion that never noticed the syntax was
// broken.
func TestEmit_GeneratedSourceIsValidGo(t *testing.T) {
	grammars := []string{
		`foo : "x";`,
		`num : [0-9]+;`,
		`not_ws : [^ \t\r\n];`,
		`r : "ab" | "ac";`,
		`num : digit+; digit inline : [0-9];`,
		`r : x*; x : "a"?;`,
		`r : ws "x"; ws discard : [ \t]*;`,
		`r : m; m mergeup : "x";`,
	}

	for _, src := range grammars {
		g := mustParse(t, src)
		out, err := Emit(g, Options{Package: "main"})
		require.NoError(t, err)
		_, err = format.Source([]byte(out.Parser))
		assert.NoError(t, err, "generated source for %q is not valid Go:\n%s", src, out.Parser)
	}
}

// execNode mirrors the JSON shape harnessSrc's main() dumps an *ASTNode
// tree into.
type execNode struct {
	Text     string     `json:"text"`
	Pos      int        `json:"pos"`
	Line     int        `json:"line"`
	Col      int        `json:"col"`
	Children []execNode `json:"children"`
}

type execResult struct {
	OK   bool      `json:"ok"`
	Pos  int       `json:"pos"`
	Line int       `json:"line"`
	Col  int       `json:"col"`
	Tree *execNode `json:"tree,omitempty"`
}

// runGenerated writes out.Parser (emitted with Package: "main" so it
// shares a package with harnessSrc) into a throwaway module, "go run"s
// it against input, and decodes the JSON tree the harness prints. This
// exercises the emitted source the way a real caller would — compiled
// and executed — rather than asserting on substrings of the template
// text, closing the gap participle's codegen test leaves open (that one
// only gofmts; it never runs the generated lexer standalone either, but
// wires it into the same test binary as a committed file. The parser
// this generator emits is a full standalone package per grammar, so
// there is no fixed committed file to wire in — a scratch module run
// with "go run" is the equivalent for a generator whose output varies
// per test grammar).
func runGenerated(t *testing.T, out *Output, input string) execResult {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping go run of generated parser in -short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available on PATH")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module gentest\n\ngo 1.21\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parser.go"), []byte(out.Parser), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "harness.go"), []byte(harnessSrc), 0o644))

	cmd := exec.Command("go", "run", ".", input)
	cmd.Dir = dir
	stdout, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			t.Fatalf("running generated parser: %v\nstderr:\n%s", err, ee.Stderr)
		}
		t.Fatalf("running generated parser: %v", err)
	}

	var res execResult
	require.NoError(t, json.Unmarshal(stdout, &res), "decoding harness output: %s", stdout)
	return res
}

// harnessSrc is a small package-main companion to the emitted parser
// (also package main, so "go run ." picks up both as one program): it
// parses os.Args[1] and prints the resulting cursor position and
// *ASTNode tree as JSON, using only the parser's exported accessors
// (Text/Pos/Line/Col/Children), never its unexported fields.
const harnessSrc = `package main

import (
	"encoding/json"
	"fmt"
	"os"
)

type dumpNode struct {
	Text     string     ` + "`json:\"text\"`" + `
	Pos      int        ` + "`json:\"pos\"`" + `
	Line     int        ` + "`json:\"line\"`" + `
	Col      int        ` + "`json:\"col\"`" + `
	Children []dumpNode ` + "`json:\"children\"`" + `
}

func dump(n *ASTNode) dumpNode {
	children := make([]dumpNode, 0, len(n.Children()))
	for _, c := range n.Children() {
		children = append(children, dump(c))
	}
	return dumpNode{Text: n.Text(), Pos: n.Pos(), Line: n.Line(), Col: n.Col(), Children: children}
}

func main() {
	p := NewParser([]byte(os.Args[1]))
	tree, ok := p.Parse()
	result := struct {
		OK   bool      ` + "`json:\"ok\"`" + `
		Pos  int       ` + "`json:\"pos\"`" + `
		Line int       ` + "`json:\"line\"`" + `
		Col  int       ` + "`json:\"col\"`" + `
		Tree *dumpNode ` + "`json:\"tree,omitempty\"`" + `
	}{OK: ok, Pos: p.Pos(), Line: p.Line(), Col: p.Col()}
	if ok {
		d := dump(tree)
		result.Tree = &d
	}
	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
`

// The following five tests are spec.md §8's numbered concrete scenarios
// 1-5, each run against the actual compiled-and-executed emitted parser
// rather than grepped out of the generated source text. Scenario 6
// (duplicate rule name rejected with an error) is a grammar-parse-time
// failure that never reaches Emit at all; it is covered by
// TestParse_DuplicateRule in internal/gram.

func TestScenario1_SimpleStringMatch(t *testing.T) {
	g := mustParse(t, `foo : "x";`)
	out, err := Emit(g, Options{Package: "main"})
	require.NoError(t, err)

	res := runGenerated(t, out, "x")
	require.True(t, res.OK)
	assert.Equal(t, 1, res.Pos)
	require.NotNil(t, res.Tree)
	assert.Equal(t, "foo", res.Tree.Text)
	require.Len(t, res.Tree.Children, 1)
	assert.Equal(t, "x", res.Tree.Children[0].Text)
}

func TestScenario2_OnePlusChildPerIteration(t *testing.T) {
	g := mustParse(t, `num : [0-9]+;`)
	out, err := Emit(g, Options{Package: "main"})
	require.NoError(t, err)

	res := runGenerated(t, out, "42")
	require.True(t, res.OK)
	assert.Equal(t, 2, res.Pos)
	assert.Equal(t, 1, res.Line)
	require.NotNil(t, res.Tree)
	assert.Equal(t, "num", res.Tree.Text)
	require.Len(t, res.Tree.Children, 2)
	assert.Equal(t, "4", res.Tree.Children[0].Text)
	assert.Equal(t, "2", res.Tree.Children[1].Text)
}

func TestScenario3_WholeClassNegation(t *testing.T) {
	g := mustParse(t, `not_ws : [^ \t\r\n];`)
	out, err := Emit(g, Options{Package: "main"})
	require.NoError(t, err)

	matched := runGenerated(t, out, "a")
	require.True(t, matched.OK)
	require.NotNil(t, matched.Tree)
	assert.Equal(t, "not_ws", matched.Tree.Text)
	require.Len(t, matched.Tree.Children, 1)
	assert.Equal(t, "a", matched.Tree.Children[0].Text)

	failed := runGenerated(t, out, " ")
	assert.False(t, failed.OK)
	assert.Equal(t, 0, failed.Pos)
}

func TestScenario4_AlternationRollsBackFirstAlternative(t *testing.T) {
	g := mustParse(t, `r : "ab" | "ac";`)
	out, err := Emit(g, Options{Package: "main"})
	require.NoError(t, err)

	res := runGenerated(t, out, "ac")
	require.True(t, res.OK)
	assert.Equal(t, 2, res.Pos)
	require.NotNil(t, res.Tree)
	assert.Equal(t, "r", res.Tree.Text)
	require.Len(t, res.Tree.Children, 1)
	assert.Equal(t, "ac", res.Tree.Children[0].Text)
}

func TestScenario5_QuantifiedInlineCollapsesToOneSpan(t *testing.T) {
	g := mustParse(t, `num : digit+; digit inline : [0-9];`)
	out, err := Emit(g, Options{Package: "main"})
	require.NoError(t, err)

	res := runGenerated(t, out, "12")
	require.True(t, res.OK)
	assert.Equal(t, 2, res.Pos)
	require.NotNil(t, res.Tree)
	assert.Equal(t, "num", res.Tree.Text)
	require.Len(t, res.Tree.Children, 1)
	assert.Equal(t, "12", res.Tree.Children[0].Text)
}
