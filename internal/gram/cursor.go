package gram

// cursor is a value-typed (pos, line, col) triple. It is copied on save
// and restore, never shared by reference across recursive descent calls,
// mirroring the source.Pos triple in github.com/ava12/llx/source.
type cursor struct {
	pos, line, col int
}

// advance moves the cursor past one input byte b, tracking line/column the
// way the grammar's own "ws" rule does: LF starts a new line and resets
// the column, CR is consumed without moving the column, everything else
// advances the column by one.
func (c cursor) advance(b byte) cursor {
	c.pos++
	switch b {
	case '\n':
		c.line++
		c.col = 1
	case '\r':
		// consumed, column unchanged
	default:
		c.col++
	}
	return c
}

// advanceN advances the cursor across n bytes of text starting at c.pos in src.
func (c cursor) advanceN(src []byte, n int) cursor {
	for i := 0; i < n; i++ {
		c = c.advance(src[c.pos])
	}
	return c
}
