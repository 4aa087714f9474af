package gram

import (
	"github.com/ava12/ipg/internal/decode"
)

// byteAt returns the byte at c.pos, or 0 past the end of content (acting as
// a NUL sentinel the way the original C++ implementation relies on a
// NUL-terminated buffer).
func (p *parser) byteAt(c cursor) byte {
	if c.pos >= len(p.content) {
		return 0
	}
	return p.content[c.pos]
}

// skipWS consumes [ \t\r\n]* starting at c and returns the resulting cursor.
func (p *parser) skipWS(c cursor) cursor {
	for {
		b := p.byteAt(c)
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			c = c.advance(b)
			continue
		}
		break
	}
	return c
}

// skipComment consumes a "# ... \n" comment starting at c, if present.
func (p *parser) skipComment(c cursor) cursor {
	if p.byteAt(c) != '#' {
		return c
	}

	for {
		b := p.byteAt(c)
		if b == 0 || b == '\n' || b == '\r' {
			break
		}
		c = c.advance(b)
	}
	return c
}

// skipTrivia consumes ws (comment ws)* until a fixed point is reached.
func (p *parser) skipTrivia(c cursor) cursor {
	c = p.skipWS(c)
	for {
		next := p.skipWS(p.skipComment(c))
		if next.pos == c.pos {
			break
		}
		c = next
	}
	return c
}

// scanIdent scans [A-Za-z][0-9A-Za-z_]* starting at c.
// It returns the identifier text, the cursor past it, and whether it matched.
func (p *parser) scanIdent(c cursor) (string, cursor, bool) {
	start := c
	b := p.byteAt(c)
	if !isAlpha(b) {
		return "", start, false
	}
	c = c.advance(b)

	for {
		b = p.byteAt(c)
		if isAlpha(b) || isDigit(b) || b == '_' {
			c = c.advance(b)
			continue
		}
		break
	}

	return string(p.content[start.pos:c.pos]), c, true
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// scanString scans a quoted string literal, honoring \-escapes for the next
// byte (verbatim, not interpreted). Returns the raw token including quotes.
//
// Once the opening '"' is consumed the literal is committed: running off
// the end of the line or the file before a closing '"' is an unclosed
// string, not "this wasn't a string after all", so that case reports
// unclosedStringError instead of a plain non-match.
func (p *parser) scanString(c cursor) (string, cursor, bool, error) {
	start := c
	if p.byteAt(c) != '"' {
		return "", start, false, nil
	}
	c = c.advance('"')

	escaped := false
	for {
		b := p.byteAt(c)
		if b < ' ' {
			return "", start, false, unclosedStringError(p.posAt(start))
		}
		if b == '\\' && !escaped {
			escaped = true
			c = c.advance(b)
			continue
		}
		if b == '"' && !escaped {
			c = c.advance(b)
			return string(p.content[start.pos:c.pos]), c, true, nil
		}
		escaped = false
		c = c.advance(b)
	}
}

// decodeRuneAt decodes the code point (escaped or raw UTF-8) starting at c.
func (p *parser) decodeRuneAt(c cursor) (cp rune, escaped bool, n int, err error) {
	cp, n, escaped, err = decode.Any(p.content[c.pos:])
	return
}
