// Package emit turns a validated grammar model into the Go source text of
// a backtracking recursive-descent parser for that grammar. The emission
// algorithm mirrors the original generator's print_rule/print_alts/
// print_alt/print_elem/print_elem_inner: a numeric "depth" threaded
// through the recursion picks fresh, non-colliding local variable names
// (ok0, ok1, posStart2, ...) so the emitted Go source can be built as
// flat text without an intermediate AST of its own.
package emit

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ava12/ipg/internal/decode"
	"github.com/ava12/ipg/internal/gram"
)

// Options controls how a grammar is rendered to Go source.
type Options struct {
	// Package is the emitted file's package name.
	Package string
	// VarName is the exported type name for the generated parser struct.
	// Defaults to "Parser".
	VarName string
	// WithDriver additionally emits a runnable main package that reads a
	// file path from argv, parses it, and prints the AST or a diagnostic.
	WithDriver bool
	// ImportPath is the import path of the emitted parser package,
	// required only when WithDriver is set.
	ImportPath string
}

type headerData struct {
	Package         string
	VarName         string
	VarNameExported string
	RootRule        string
}

// Output is what Emit produces: Parser holds the parser package; when
// opts.WithDriver is set, Driver additionally holds the runnable main
// package.
type Output struct {
	Parser string
	Driver string
}

// Emit renders g as a complete Go source file implementing its grammar.
func Emit(g *gram.Grammar, opts Options) (*Output, error) {
	if g == nil || len(g.Order) == 0 {
		return nil, fmt.Errorf("emit: grammar has no rules")
	}

	varName := opts.VarName
	if varName == "" {
		varName = "Parser"
	}

	var buf bytes.Buffer
	data := headerData{
		Package:         opts.Package,
		VarName:         varName,
		VarNameExported: exportName(varName),
		RootRule:        g.Root,
	}
	if err := headerTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("emit: rendering header: %w", err)
	}

	e := &emitter{buf: &buf, varName: varName, grammar: g}
	for _, name := range g.Order {
		e.emitRule(g.Rules[name])
	}

	if err := footerTmpl.Execute(&buf, nil); err != nil {
		return nil, fmt.Errorf("emit: rendering footer: %w", err)
	}

	out := &Output{Parser: buf.String()}

	if opts.WithDriver {
		var dbuf bytes.Buffer
		ddata := struct {
			ImportPath      string
			VarNameExported string
		}{opts.ImportPath, data.VarNameExported}
		if err := driverTmpl.Execute(&dbuf, ddata); err != nil {
			return nil, fmt.Errorf("emit: rendering driver: %w", err)
		}
		out.Driver = dbuf.String()
	}

	return out, nil
}

func exportName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// emitter carries the shared state (output buffer, grammar, receiver
// name) across the recursive per-rule emission calls.
type emitter struct {
	buf     *bytes.Buffer
	varName string
	grammar *gram.Grammar
}

func (e *emitter) tabs(depth int) string {
	return strings.Repeat("\t", depth+1)
}

// emitRule emits one parse_<name> method. It corresponds to the original
// generator's print_rule.
func (e *emitter) emitRule(rule *gram.Rule) {
	fmt.Fprintf(e.buf, "\n// %s\nfunc (p *%s) parse_%s(parent *ASTNode) Ret {\n", ruleSignature(rule), e.varName, rule.Name)
	fmt.Fprintf(e.buf, "\tposPrev, linePrev, colPrev := p.pos, p.line, p.col\n")

	if rule.Modifier == gram.ModMergeup {
		fmt.Fprintf(e.buf, "\tastn0 := parent\n")
	} else {
		fmt.Fprintf(e.buf, "\tastn0 := newASTNode(p.pos, p.line, p.col, %s)\n", strconv.Quote(rule.Name))
	}
	fmt.Fprintln(e.buf)

	e.emitAlts(rule.Alts, 0)

	fmt.Fprintln(e.buf)
	fmt.Fprintf(e.buf, "\tif !ok0 {\n")
	fmt.Fprintf(e.buf, "\t\tp.pos, p.line, p.col = posPrev, linePrev, colPrev\n")
	fmt.Fprintf(e.buf, "\t}")
	if rule.Modifier != gram.ModDiscard && rule.Modifier != gram.ModInline && rule.Modifier != gram.ModMergeup {
		fmt.Fprintf(e.buf, " else {\n\t\tparent.addChild(astn0)\n\t}")
	}
	fmt.Fprintln(e.buf)

	ret := "RetOK"
	if rule.Modifier == gram.ModInline {
		ret = "RetInline"
	}
	fmt.Fprintf(e.buf, "\tif ok0 {\n\t\treturn %s\n\t}\n\treturn RetFail\n}\n", ret)
}

func ruleSignature(rule *gram.Rule) string {
	if rule.Modifier == "" {
		return rule.Name
	}
	return fmt.Sprintf("%s %s", rule.Name, rule.Modifier)
}

// emitAlts emits the alternates block for a list of ALT elements at the
// given depth. Mirrors print_alts: declares ok<depth>/posStart<depth>
// (plus an astn<depth> holding pen when depth > 0, since depth 0 always
// belongs to a rule which already has its own astn0), tries every
// alternative in a one-shot loop, and on success re-parents whatever the
// winning alternative collected.
func (e *emitter) emitAlts(alts []*gram.Element, depth int) {
	t := e.tabs(depth)
	fmt.Fprintf(e.buf, "%s// alternates\n", t)
	fmt.Fprintf(e.buf, "%sok%d := false\n", t, depth)
	fmt.Fprintf(e.buf, "%sposStart%d, lineStart%d, colStart%d := p.pos, p.line, p.col\n", t, depth, depth, depth)
	if depth > 0 {
		fmt.Fprintf(e.buf, "%sastn%d := newASTNode(p.pos, p.line, p.col, \"\")\n", t, depth)
	}
	fmt.Fprintf(e.buf, "%sfor {\n", t)
	for i, alt := range alts {
		if i > 0 {
			fmt.Fprintln(e.buf)
		}
		e.emitAlt(alt, depth+1)
	}
	fmt.Fprintln(e.buf)
	fmt.Fprintf(e.buf, "%s\tbreak\n", t)
	fmt.Fprintf(e.buf, "%s}\n", t)
	fmt.Fprintf(e.buf, "%sif !ok%d {\n", t, depth)
	fmt.Fprintf(e.buf, "%s\tp.pos, p.line, p.col = posStart%d, lineStart%d, colStart%d\n", t, depth, depth, depth)
	fmt.Fprintf(e.buf, "%s}", t)
	if depth > 0 {
		fmt.Fprintf(e.buf, " else {\n")
		fmt.Fprintf(e.buf, "%s\tfor _, child%d := range astn%d.children {\n", t, depth, depth)
		fmt.Fprintf(e.buf, "%s\t\tastn%d.addChild(child%d)\n", t, depth-2, depth)
		fmt.Fprintf(e.buf, "%s\t}\n", t)
		fmt.Fprintf(e.buf, "%s}\n", t)
	} else {
		fmt.Fprintln(e.buf)
	}
}

// emitAlt emits one ALT element's sequential elements. Mirrors print_alt:
// a one-shot loop tries every element in order, breaking out (leaving
// ok<depth-1> false) the moment one fails.
func (e *emitter) emitAlt(alt *gram.Element, depth int) {
	t := e.tabs(depth)
	fmt.Fprintf(e.buf, "%s// alternate\n", t)
	fmt.Fprintf(e.buf, "%sfor {\n", t)
	fmt.Fprintf(e.buf, "%s\tok%d := false\n", t, depth)
	fmt.Fprintf(e.buf, "%s\tposStart%d, lineStart%d, colStart%d := p.pos, p.line, p.col\n", t, depth, depth, depth)
	fmt.Fprintln(e.buf)

	for i, sub := range alt.Sub {
		if i > 0 {
			fmt.Fprintln(e.buf)
		}
		e.emitElement(sub, depth+1)
	}

	fmt.Fprintln(e.buf)
	fmt.Fprintf(e.buf, "%s\tok%d = true\n", t, depth-1)
	fmt.Fprintf(e.buf, "%s\tbreak\n", t)
	fmt.Fprintf(e.buf, "%s}\n", t)
	fmt.Fprintf(e.buf, "%sif ok%d {\n\t%sbreak\n%s}\n", t, depth-1, t, t)
}

// isInlineNameRef reports whether elem is a NAME element referring to a
// rule declared "inline". Such a rule never attaches its own node to the
// caller (see its RetInline branch in emitRule); the caller must instead
// flatten whatever it matched into one leaf spanning the consumed text.
func (e *emitter) isInlineNameRef(elem *gram.Element) bool {
	if elem.Kind != gram.KindName {
		return false
	}
	rule, exists := e.grammar.Rules[elem.Tokens[0]]
	return exists && rule.Modifier == gram.ModInline
}

// emitElement emits one sequential element's quantifier handling, then
// dispatches to emitElementInner for the underlying match. Mirrors
// print_elem. On failure the cursor is restored to the element's own
// entry position, satisfying the invariant that a failing primitive never
// leaves partial progress behind.
//
// When elem is a quantified reference to an "inline" rule, every
// iteration is flattened into a single span: matched<depth> tracks
// whether at least one iteration actually matched (ok<depth-1> alone
// isn't enough, since it is unconditionally true for "?" and "*" even
// with zero matches), and elemPos/elemLine/elemCol<depth> pin the
// position where the whole run of iterations began. The one leaf node
// covering the full run is attached after the quantifier loop finishes,
// not once per iteration, so "num : digit+; digit inline : [0-9];"
// parsing "12" produces one child spanning "12" rather than two.
func (e *emitter) emitElement(elem *gram.Element, depth int) {
	t := e.tabs(depth)
	fmt.Fprintf(e.buf, "%s// element%s\n", t, elem.Quantifier.String())

	inline := e.isInlineNameRef(elem)
	if inline {
		// a bare block, not a one-shot loop: it only needs to scope
		// elemPos/matched away from sibling elements at the same depth,
		// and unlike a for-loop it lets a nested "break" tunnel straight
		// through to the alternative's own one-shot loop below.
		fmt.Fprintf(e.buf, "%s{\n", t)
		t += "\t"
		fmt.Fprintf(e.buf, "%selemPos%d, elemLine%d, elemCol%d := p.pos, p.line, p.col\n", t, depth, depth, depth)
		fmt.Fprintf(e.buf, "%smatched%d := false\n", t, depth)
	}

	switch elem.Quantifier {
	case gram.QuantZeroOne:
		fmt.Fprintf(e.buf, "%sok%d = false\n", t, depth-1)
		fmt.Fprintf(e.buf, "%sfor {\n", t)
		fmt.Fprintf(e.buf, "%s\tposStart%d, lineStart%d, colStart%d = p.pos, p.line, p.col\n", t, depth-1, depth-1, depth-1)
		e.emitElementInner(elem, depth)
		if inline {
			fmt.Fprintf(e.buf, "%s\tmatched%d = ok%d\n", t, depth, depth)
		}
		fmt.Fprintf(e.buf, "%s\tok%d = true\n", t, depth-1)
		fmt.Fprintf(e.buf, "%s\tbreak\n", t)
		fmt.Fprintf(e.buf, "%s}\n", t)

	case gram.QuantZeroPlus:
		fmt.Fprintf(e.buf, "%sok%d = false\n", t, depth-1)
		fmt.Fprintf(e.buf, "%sfor {\n", t)
		fmt.Fprintf(e.buf, "%s\tposStart%d, lineStart%d, colStart%d = p.pos, p.line, p.col\n", t, depth-1, depth-1, depth-1)
		e.emitElementInner(elem, depth)
		fmt.Fprintf(e.buf, "%s\tif ok%d && p.pos > posStart%d {\n", t, depth, depth-1)
		if inline {
			fmt.Fprintf(e.buf, "%s\t\tmatched%d = true\n", t, depth)
		}
		fmt.Fprintf(e.buf, "%s\t\tok%d = ok%d\n", t, depth-1, depth)
		fmt.Fprintf(e.buf, "%s\t\tcontinue\n", t)
		fmt.Fprintf(e.buf, "%s\t}\n", t)
		fmt.Fprintf(e.buf, "%s\tok%d = true\n", t, depth-1)
		fmt.Fprintf(e.buf, "%s\tbreak\n", t)
		fmt.Fprintf(e.buf, "%s}\n", t)

	case gram.QuantOnePlus:
		fmt.Fprintf(e.buf, "%sok%d = false\n", t, depth-1)
		fmt.Fprintf(e.buf, "%scounter%d := 0\n", t, depth)
		fmt.Fprintf(e.buf, "%sfor {\n", t)
		fmt.Fprintf(e.buf, "%s\tposStart%d, lineStart%d, colStart%d = p.pos, p.line, p.col\n", t, depth-1, depth-1, depth-1)
		e.emitElementInner(elem, depth)
		fmt.Fprintf(e.buf, "%s\tif !ok%d {\n\t\t%sbreak\n\t%s}\n", t, depth, t, t)
		fmt.Fprintf(e.buf, "%s\tcounter%d++\n", t, depth)
		fmt.Fprintf(e.buf, "%s\tif p.pos == posStart%d {\n", t, depth-1)
		fmt.Fprintf(e.buf, "%s\t\tbreak\n", t)
		fmt.Fprintf(e.buf, "%s\t}\n", t)
		fmt.Fprintf(e.buf, "%s}\n", t)
		fmt.Fprintf(e.buf, "%sok%d = counter%d > 0\n", t, depth-1, depth)
		if inline {
			fmt.Fprintf(e.buf, "%smatched%d = ok%d\n", t, depth, depth-1)
		}

	default:
		fmt.Fprintf(e.buf, "%sok%d = false\n", t, depth-1)
		fmt.Fprintf(e.buf, "%sfor {\n", t)
		fmt.Fprintf(e.buf, "%s\tposStart%d, lineStart%d, colStart%d = p.pos, p.line, p.col\n", t, depth-1, depth-1, depth-1)
		e.emitElementInner(elem, depth)
		fmt.Fprintf(e.buf, "%s\tok%d = ok%d\n", t, depth-1, depth)
		if inline {
			fmt.Fprintf(e.buf, "%s\tmatched%d = ok%d\n", t, depth, depth)
		}
		fmt.Fprintf(e.buf, "%s\tbreak\n", t)
		fmt.Fprintf(e.buf, "%s}\n", t)
	}

	if inline {
		fmt.Fprintf(e.buf, "%sif matched%d {\n", t, depth)
		fmt.Fprintf(e.buf, "%s\tastn%d := newASTNode(elemPos%d, elemLine%d, elemCol%d, string(p.text[elemPos%d:p.pos]))\n", t, depth, depth, depth, depth, depth)
		fmt.Fprintf(e.buf, "%s\tastn%d.addChild(astn%d)\n", t, depth-2, depth)
		fmt.Fprintf(e.buf, "%s}\n", t)
	}

	fmt.Fprintf(e.buf, "%sif !ok%d {\n", t, depth-1)
	fmt.Fprintf(e.buf, "%s\tp.pos, p.line, p.col = posStart%d, lineStart%d, colStart%d\n", t, depth-1, depth-1, depth-1)
	fmt.Fprintf(e.buf, "%s\tbreak\n", t)
	fmt.Fprintf(e.buf, "%s}\n", t)

	if inline {
		t = strings.TrimSuffix(t, "\t")
		fmt.Fprintf(e.buf, "%s}\n", t)
	}
}

// emitElementInner emits the actual match attempt for one atom (NAME,
// CH_CLASS, STRING or GROUP). Mirrors print_elem_inner: on a match it
// builds a leaf/branch ASTNode spanning [posStart<depth-1>, p.pos) and
// attaches it to astn<depth-2>, the nearest real AST-owning ancestor.
func (e *emitter) emitElementInner(elem *gram.Element, depth int) {
	t := e.tabs(depth + 1)

	switch elem.Kind {
	case gram.KindName:
		name := elem.Tokens[0]
		fmt.Fprintf(e.buf, "%sret%d := p.parse_%s(astn%d)\n", t, depth, name, depth-2)
		fmt.Fprintf(e.buf, "%sok%d := ret%d != RetFail\n", t, depth, depth)
		// an "inline" rule never attaches its own node to the parent we
		// just passed it (see its RetInline branch in emitRule); the
		// caller (emitElement) flattens the whole run of iterations into
		// one leaf spanning the consumed text instead.

	case gram.KindCharClass:
		e.emitCharClass(elem, depth, t)

	case gram.KindString:
		lit := decodeStringLiteral(elem.Tokens[0])
		fmt.Fprintf(e.buf, "%sok%d := false\n", t, depth)
		fmt.Fprintf(e.buf, "%sstr%d := %s\n", t, depth, strconv.Quote(lit))
		fmt.Fprintf(e.buf, "%si%d := 0\n", t, depth)
		fmt.Fprintf(e.buf, "%sfor i%d < len(str%d) && p.pos+i%d < len(p.text) && p.text[p.pos+i%d] == str%d[i%d] {\n", t, depth, depth, depth, depth, depth, depth)
		fmt.Fprintf(e.buf, "%s\ti%d++\n", t, depth)
		fmt.Fprintf(e.buf, "%s}\n", t)
		fmt.Fprintf(e.buf, "%sif i%d == len(str%d) {\n", t, depth, depth)
		fmt.Fprintf(e.buf, "%s\tp.pos += i%d\n", t, depth)
		fmt.Fprintf(e.buf, "%s\tp.col += i%d\n", t, depth)
		fmt.Fprintf(e.buf, "%s\tp.updateFurthest()\n", t)
		fmt.Fprintf(e.buf, "%s\tok%d = true\n", t, depth)
		fmt.Fprintf(e.buf, "%s}\n", t)
		fmt.Fprintf(e.buf, "%sif ok%d {\n", t, depth)
		fmt.Fprintf(e.buf, "%s\tastn%d := newASTNode(posStart%d, lineStart%d, colStart%d, str%d)\n", t, depth, depth-1, depth-1, depth-1, depth)
		fmt.Fprintf(e.buf, "%s\tastn%d.addChild(astn%d)\n", t, depth-2, depth)
		fmt.Fprintf(e.buf, "%s}\n", t)

	case gram.KindGroup:
		e.emitAlts(elem.Sub, depth)

	default:
		panic(fmt.Sprintf("emit: unsupported element kind %v", elem.Kind))
	}
}

// decodeStringLiteral turns a raw quoted STRING token (backslash-escapes
// still verbatim, quotes included) into the literal byte sequence it
// should match against the input.
func decodeStringLiteral(raw string) string {
	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(inner); {
		if inner[i] == '\\' && i+1 < len(inner) {
			b.WriteByte(inner[i+1])
			i += 2
			continue
		}
		b.WriteByte(inner[i])
		i++
	}
	return b.String()
}

// charClassBounds is one range (or single char, when Hi == Lo) parsed out
// of a CH_CLASS element's token stream, along with its own "!" negation.
type charClassBounds struct {
	negate bool
	lo, hi rune
}

// emitCharClass renders the boolean expression a CH_CLASS element
// compiles down to, then the byte-advance/AST-attach logic shared with
// STRING and NAME matches. Mirrors the negative/positive expression
// split in print_elem_inner: ranges marked "!" must all fail to match
// (an AND chain starting from true), and the rest must have at least one
// match (an OR chain starting from false); the two chains are ANDed
// together, then the whole thing negated again if the class opened with
// unescaped "^".
func (e *emitter) emitCharClass(elem *gram.Element, depth int, t string) {
	negateAll, bounds := parseCharClassTokens(elem.Tokens)

	fmt.Fprintf(e.buf, "%sok%d := false\n", t, depth)
	fmt.Fprintf(e.buf, "%scp%d, width%d := decodeUTF8(p.text[p.pos:])\n", t, depth, depth)

	var neg, pos strings.Builder
	neg.WriteString("true")
	pos.WriteString("false")
	for _, b := range bounds {
		var cond string
		if b.hi == b.lo {
			cond = fmt.Sprintf("cp%d == %d", depth, b.lo)
		} else {
			cond = fmt.Sprintf("(cp%d >= %d && cp%d <= %d)", depth, b.lo, depth, b.hi)
		}
		if b.negate {
			fmt.Fprintf(&neg, " && !(%s)", cond)
		} else {
			fmt.Fprintf(&pos, " || (%s)", cond)
		}
	}

	expr := fmt.Sprintf("(%s) && (%s)", neg.String(), pos.String())
	if negateAll {
		expr = "!(" + expr + ")"
	}

	fmt.Fprintf(e.buf, "%sif width%d > 0 && %s {\n", t, depth, expr)
	fmt.Fprintf(e.buf, "%s\tok%d = true\n", t, depth)
	fmt.Fprintf(e.buf, "%s}\n", t)
	fmt.Fprintf(e.buf, "%sif ok%d {\n", t, depth)
	fmt.Fprintf(e.buf, "%s\tastn%d := newASTNode(posStart%d, lineStart%d, colStart%d, string(p.text[p.pos:p.pos+width%d]))\n", t, depth, depth-1, depth-1, depth-1, depth)
	fmt.Fprintf(e.buf, "%s\tastn%d.addChild(astn%d)\n", t, depth-2, depth)
	fmt.Fprintf(e.buf, "%s\tp.pos += width%d\n", t, depth)
	fmt.Fprintf(e.buf, "%s\tif cp%d == '\\n' {\n", t, depth)
	fmt.Fprintf(e.buf, "%s\t\tp.line++\n", t)
	fmt.Fprintf(e.buf, "%s\t\tp.col = 1\n", t)
	fmt.Fprintf(e.buf, "%s\t} else {\n", t)
	fmt.Fprintf(e.buf, "%s\t\tp.col += width%d\n", t, depth)
	fmt.Fprintf(e.buf, "%s\t}\n", t)
	fmt.Fprintf(e.buf, "%s\tp.updateFurthest()\n", t)
	fmt.Fprintf(e.buf, "%s}\n", t)
}

// parseCharClassTokens decodes a CH_CLASS element's raw token stream
// (leading "[", optional "^", one or more ranges each optionally
// preceded by "!", trailing "]") into the whole-class negation flag and
// the list of individual range bounds.
func parseCharClassTokens(tokens []string) (negateAll bool, bounds []charClassBounds) {
	i := 1 // skip "["
	if i < len(tokens)-1 && tokens[i] == "^" {
		negateAll = true
		i++
	}

	for i < len(tokens)-1 {
		negate := false
		if tokens[i] == "!" {
			negate = true
			i++
		}

		lo, _, _, _ := decode.Any([]byte(tokens[i]))
		i++
		hi := lo
		if i < len(tokens)-1 && tokens[i] == "-" {
			i++
			hi, _, _, _ = decode.Any([]byte(tokens[i]))
			i++
		}

		bounds = append(bounds, charClassBounds{negate: negate, lo: lo, hi: hi})
	}

	return negateAll, bounds
}
