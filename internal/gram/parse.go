package gram

import (
	"github.com/ava12/ipg/internal/decode"
)

// parser holds the state of one grammar-file parse: the raw bytes, a
// Source for diagnostics, and the grammar model being built. The cursor
// itself is never stored here — it is threaded value-typed through every
// recursive-descent method, exactly like github.com/ava12/llx/source.Pos.
type parser struct {
	content []byte
	src     *Source
	grammar *Grammar
}

func (p *parser) posAt(c cursor) pos {
	return pos{p.src, c.line, c.col}
}

// Parse builds a Grammar from a named grammar description.
//
// rules : ws (comment ws)* rule+ ;
func Parse(name string, content []byte) (*Grammar, error) {
	p := &parser{content: content, src: NewSource(name, content), grammar: NewGrammar()}
	c := cursor{pos: 0, line: 1, col: 1}
	c = p.skipTrivia(c)

	if p.byteAt(c) == 0 {
		return nil, emptyGrammarError(p.posAt(c))
	}

	for p.byteAt(c) != 0 {
		var err error
		c, err = p.parseRule(c)
		if err != nil {
			return nil, err
		}
	}

	return p.grammar, nil
}

// rule : ws id ws (discard|inline|mergeup)? ws ":" ws alts ws ";" ws (comment ws)* ;
func (p *parser) parseRule(c cursor) (cursor, error) {
	c = p.skipTrivia(c)

	nameStart := c
	name, c2, ok := p.scanIdent(c)
	if !ok {
		return c, unexpectedCharError(p.posAt(c), "a rule name")
	}
	if _, exists := p.grammar.Rules[name]; exists {
		return c, duplicateRuleError(p.posAt(nameStart), name)
	}
	c = c2

	rule := &Rule{Name: name, Pos: nameStart.pos, Line: nameStart.line, Col: nameStart.col}

	wsC := p.skipWS(c)
	if mod, c3, ok := p.scanIdent(wsC); ok {
		if !IsValidModifier(mod) {
			return wsC, invalidModifierError(p.posAt(wsC), mod)
		}
		rule.Modifier = mod
		c = p.skipWS(c3)
	} else {
		c = wsC
	}

	if p.byteAt(c) != ':' {
		return c, unexpectedCharError(p.posAt(c), "':'")
	}
	c = c.advance(':')
	c = p.skipWS(c)

	alts, c2b, ok, err := p.parseAlts(c)
	if err != nil {
		return c, err
	}
	if !ok {
		return c, unexpectedCharError(p.posAt(c), "an alternative")
	}
	rule.Alts = alts
	c = p.skipWS(c2b)

	if p.byteAt(c) != ';' {
		return c, unexpectedCharError(p.posAt(c), "';'")
	}
	c = c.advance(';')
	c = p.skipTrivia(c)

	p.grammar.AddRule(rule)

	return c, nil
}

// alts : alt (ws "|" ws alt)* ;
func (p *parser) parseAlts(c cursor) ([]*Element, cursor, bool, error) {
	entry := c
	var alts []*Element
	trailingBar := false
	var lastBar cursor

	for {
		altElem, c2, ok, err := p.parseAlt(c)
		if err != nil {
			return nil, entry, false, err
		}
		if !ok {
			break
		}

		c = c2
		alts = append(alts, altElem)
		trailingBar = false

		wsC := p.skipWS(c)
		if p.byteAt(wsC) == '|' {
			trailingBar = true
			lastBar = wsC
			c = p.skipWS(wsC.advance('|'))
			continue
		}

		c = wsC
		break
	}

	if len(alts) == 0 {
		return nil, entry, false, nil
	}
	if trailingBar {
		return nil, entry, false, trailingBarError(p.posAt(lastBar))
	}

	return alts, c, true, nil
}

// alt : elem (ws elem)* ;
func (p *parser) parseAlt(c cursor) (*Element, cursor, bool, error) {
	start := c
	alt := NewComposite(KindAlt, start.pos, start.line, start.col)
	count := 0

	for {
		elem, c2, ok, err := p.parseElement(c)
		if err != nil {
			return nil, start, false, err
		}
		if !ok {
			break
		}

		alt.Append(elem)
		count++
		c = p.skipWS(c2)
	}

	if count == 0 {
		return nil, start, false, nil
	}
	return alt, c, true, nil
}

// elem : (group | id | ch_class | string) [?*+]? ;
func (p *parser) parseElement(c cursor) (*Element, cursor, bool, error) {
	elem, c2, ok, err := p.parseAtom(c)
	if err != nil {
		return nil, c, false, err
	}
	if !ok {
		return nil, c, false, nil
	}

	c = p.skipWS(c2)
	switch p.byteAt(c) {
	case '?':
		elem.Quantifier = QuantZeroOne
		c = c.advance('?')
	case '*':
		elem.Quantifier = QuantZeroPlus
		c = c.advance('*')
	case '+':
		elem.Quantifier = QuantOnePlus
		c = c.advance('+')
	}

	return elem, c, true, nil
}

func (p *parser) parseAtom(c cursor) (*Element, cursor, bool, error) {
	if elem, c2, ok, err := p.parseGroup(c); err != nil {
		return nil, c, false, err
	} else if ok {
		return elem, c2, true, nil
	}

	if name, c2, ok := p.scanIdent(c); ok {
		return NewLeaf(KindName, c.pos, c.line, c.col, name), c2, true, nil
	}

	if elem, c2, ok, err := p.parseCharClass(c); err != nil {
		return nil, c, false, err
	} else if ok {
		return elem, c2, true, nil
	}

	if raw, c2, ok, err := p.scanString(c); err != nil {
		return nil, c, false, err
	} else if ok {
		return NewLeaf(KindString, c.pos, c.line, c.col, raw), c2, true, nil
	}

	return nil, c, false, nil
}

// group : "(" ws alts ws ")" ;
func (p *parser) parseGroup(c cursor) (*Element, cursor, bool, error) {
	entry := c
	if p.byteAt(c) != '(' {
		return nil, entry, false, nil
	}

	c = p.skipWS(c.advance('('))
	alts, c2, ok, err := p.parseAlts(c)
	if err != nil {
		return nil, entry, false, err
	}
	if !ok {
		return nil, entry, false, nil
	}

	c = p.skipWS(c2)
	if p.byteAt(c) != ')' {
		return nil, entry, false, unclosedGroupError(p.posAt(entry))
	}
	c = c.advance(')')

	elem := NewComposite(KindGroup, entry.pos, entry.line, entry.col)
	elem.Sub = alts
	return elem, c, true, nil
}

// ch_class : "[" "^"? ch_class_range ("!"? ch_class_range)* "]" ;
func (p *parser) parseCharClass(c cursor) (*Element, cursor, bool, error) {
	entry := c
	if p.byteAt(c) != '[' {
		return nil, entry, false, nil
	}

	c = c.advance('[')
	elem := NewLeaf(KindCharClass, entry.pos, entry.line, entry.col, "[")

	if p.byteAt(c) == '^' {
		elem.Tokens = append(elem.Tokens, "^")
		c = c.advance('^')
	}

	// the first range may carry its own "!" marker too: [!a-zA-Z] is a
	// single negated range, distinct from [^a-zA-Z] which negates the
	// whole class.
	var firstNeg []string
	if p.byteAt(c) == '!' {
		firstNeg = append(firstNeg, "!")
		c = c.advance('!')
	}

	tok, c2, ok, err := p.parseCharClassRange(c)
	if err != nil {
		return nil, entry, false, err
	}
	if !ok {
		return nil, entry, false, nil
	}
	elem.Tokens = append(elem.Tokens, firstNeg...)
	elem.Tokens = append(elem.Tokens, tok...)
	c = c2

	for {
		if p.byteAt(c) == ']' {
			break
		}

		rangeStart := c
		var neg []string
		if p.byteAt(c) == '!' {
			neg = append(neg, "!")
			c = c.advance('!')
		}

		tok, c2, ok, err := p.parseCharClassRange(c)
		if err != nil {
			return nil, entry, false, err
		}
		if !ok {
			// snapshot-and-truncate: nothing was committed to elem.Tokens for
			// this range attempt, so restoring the cursor is enough.
			c = rangeStart
			break
		}

		elem.Tokens = append(elem.Tokens, neg...)
		elem.Tokens = append(elem.Tokens, tok...)
		c = c2
	}

	if p.byteAt(c) != ']' {
		return nil, entry, false, unclosedCharClassError(p.posAt(entry))
	}
	c = c.advance(']')
	elem.Tokens = append(elem.Tokens, "]")

	return elem, c, true, nil
}

// ch_class_range : char ("-" char)? ;
func (p *parser) parseCharClassRange(c cursor) ([]string, cursor, bool, error) {
	entry := c
	if p.byteAt(c) == ']' {
		return nil, entry, false, nil
	}

	tok1, c2, ok := p.scanClassChar(c)
	if !ok {
		return nil, entry, false, nil
	}
	if isReservedUnescaped(tok1) {
		return nil, entry, false, reservedCharError(p.posAt(c), tok1[0])
	}
	c = c2

	if p.byteAt(c) != '-' {
		return []string{tok1}, c, true, nil
	}
	c = c.advance('-')

	if p.byteAt(c) == ']' {
		return nil, entry, false, nil
	}

	tok2Start := c
	tok2, c3, ok := p.scanClassChar(c)
	if !ok {
		return nil, entry, false, nil
	}
	if isReservedUnescaped(tok2) {
		return nil, entry, false, reservedCharError(p.posAt(tok2Start), tok2[0])
	}
	c = c3

	lo, _, _, errLo := decode.Any([]byte(tok1))
	hi, _, _, errHi := decode.Any([]byte(tok2))
	if errLo == nil && errHi == nil && lo >= hi {
		return nil, entry, false, invalidRangeError(p.posAt(entry), tok1, tok2)
	}

	return []string{tok1, "-", tok2}, c, true, nil
}

func (p *parser) scanClassChar(c cursor) (string, cursor, bool) {
	b := p.byteAt(c)
	if b < ' ' {
		return "", c, false
	}

	if b == '\\' {
		_, n, err := decode.Escape(p.content[c.pos:])
		if err != nil {
			return "", c, false
		}
		tok := string(p.content[c.pos : c.pos+n])
		return tok, c.advanceN(p.content, n), true
	}

	_, n, err := decode.UTF8(p.content[c.pos:])
	if err != nil {
		return "", c, false
	}
	tok := string(p.content[c.pos : c.pos+n])
	return tok, c.advanceN(p.content, n), true
}

func isReservedUnescaped(tok string) bool {
	if len(tok) != 1 {
		return false
	}
	switch tok[0] {
	case '!', '-', '[', '\\', ']', '^':
		return true
	}
	return false
}
