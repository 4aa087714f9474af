package emit

import "text/template"

// header carries everything a generated parser needs before its first
// rule function: the AST node type, the Ret constants, the Parser
// struct with its cursor and furthest-progress fields, and the
// dispatching entry point. It is deliberately self-contained — the
// emitted file imports nothing beyond the standard library, so it can
// be dropped into any Go module without pulling this generator along.
var headerTmpl = template.Must(template.New("header").Parse(`// Code generated by ipg. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"
)

// Ret is the three-value result every parse_<rule> function returns.
type Ret int

const (
	RetFail Ret = iota
	RetOK
	RetInline
)

// ASTNode is one node of the abstract syntax tree this parser builds.
type ASTNode struct {
	pos, line, col int
	text           string
	children       []*ASTNode
}

func newASTNode(pos, line, col int, text string) *ASTNode {
	return &ASTNode{pos: pos, line: line, col: col, text: text}
}

func (n *ASTNode) Pos() int             { return n.pos }
func (n *ASTNode) Line() int            { return n.line }
func (n *ASTNode) Col() int             { return n.col }
func (n *ASTNode) Text() string         { return n.text }
func (n *ASTNode) Children() []*ASTNode { return n.children }

func (n *ASTNode) addChild(child *ASTNode) {
	n.children = append(n.children, child)
}

// Print writes n and its descendants to standard output, one line per node, indented
// two spaces per level, in the shape "text: N" when a node has children.
func (n *ASTNode) Print(depth int) {
	fmt.Print(indent(depth), n.text)
	if len(n.children) > 0 {
		fmt.Printf(": %d", len(n.children))
	}
	fmt.Println()
	for _, c := range n.children {
		c.Print(depth + 1)
	}
}

func indent(depth int) string {
	b := make([]byte, depth*2)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// {{.VarName}} holds the cursor state and furthest-progress diagnostics
// for one parse of one input.
type {{.VarName}} struct {
	text []byte
	pos  int
	line int
	col  int

	posOk  int
	lineOk int
	colOk  int
}

// New{{.VarNameExported}} returns a parser positioned at the start of text.
func New{{.VarNameExported}}(text []byte) *{{.VarName}} {
	return &{{.VarName}}{text: text, line: 1, col: 1, lineOk: 1, colOk: 1}
}

func (p *{{.VarName}}) len() int { return len(p.text) }

func (p *{{.VarName}}) updateFurthest() {
	if p.pos > p.posOk {
		p.posOk, p.lineOk, p.colOk = p.pos, p.line, p.col
	}
}

// Pos, Line, Col report the cursor's current location.
func (p *{{.VarName}}) Pos() int  { return p.pos }
func (p *{{.VarName}}) Line() int { return p.line }
func (p *{{.VarName}}) Col() int  { return p.col }

// FurthestPos, FurthestLine, FurthestCol report the furthest location
// reached by any successful string or character-class match, even one a
// later backtrack undid — the location a syntax error should point at.
func (p *{{.VarName}}) FurthestPos() int  { return p.posOk }
func (p *{{.VarName}}) FurthestLine() int { return p.lineOk }
func (p *{{.VarName}}) FurthestCol() int  { return p.colOk }

// Parse runs the grammar's root rule ({{.RootRule}}) from the start of the
// input and returns the resulting tree along with whether it matched. It
// does not check that the match consumed the whole input; compare Pos()
// with the input length for that.
func (p *{{.VarName}}) Parse() (*ASTNode, bool) {
	root := newASTNode(0, 1, 1, "{{.RootRule}}")
	ret := p.parse_{{.RootRule}}(root)
	if ret == RetFail {
		return nil, false
	}
	if len(root.children) == 1 {
		return root.children[0], true
	}
	return root, true
}
`))

// footer carries the UTF-8 decoder every character-class match needs.
var footerTmpl = template.Must(template.New("footer").Parse(`
// decodeUTF8 decodes one UTF-8 code point from the head of s. It returns
// the code point and its width in bytes, or (0, 0) if s is empty or does
// not begin with a valid encoding. A continuation byte matches 0x80-0xbf
// (mask 0xc0, value 0x80); checking only the top bit would wrongly accept
// lead bytes like 0xc0-0xff as continuations.
func decodeUTF8(s []byte) (int32, int) {
	if len(s) == 0 {
		return 0, 0
	}

	lead := s[0]
	var size int
	var val int32
	switch {
	case lead&0x80 == 0x00:
		return int32(lead), 1
	case lead&0xe0 == 0xc0:
		size, val = 2, int32(lead&0x1f)
	case lead&0xf0 == 0xe0:
		size, val = 3, int32(lead&0x0f)
	case lead&0xf8 == 0xf0:
		size, val = 4, int32(lead&0x07)
	default:
		return 0, 0
	}

	if len(s) < size {
		return 0, 0
	}

	for i := 1; i < size; i++ {
		cont := s[i]
		if cont&0xc0 != 0x80 {
			return 0, 0
		}
		val = (val << 6) | int32(cont&0x3f)
	}

	return val, size
}
`))

// driverTmpl is emitted alongside the parser package when a caller wants
// a runnable command instead of just an importable package.
var driverTmpl = template.Must(template.New("driver").Parse(`// Code generated by ipg. DO NOT EDIT.

package main

import (
	"fmt"
	"os"

	gen "{{.ImportPath}}"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage:", os.Args[0], "<input-file>")
		os.Exit(1)
	}

	text, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	p := gen.New{{.VarNameExported}}(text)
	tree, ok := p.Parse()
	if !ok {
		fmt.Fprintf(os.Stderr, "syntax error at line %d, col %d (pos %d); furthest reached: line %d, col %d\n",
			p.Line(), p.Col(), p.Pos(), p.FurthestLine(), p.FurthestCol())
		os.Exit(1)
	}

	tree.Print(0)
}
`))
