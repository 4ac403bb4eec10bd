package object

import "io"

// packCursor is a position-tracked reader over an immutable pack buffer.
// It implements io.ByteReader so the zlib inflater consumes exactly one
// deflate stream and leaves pos on the first byte after it.
type packCursor struct {
	buf []byte
	pos int
}

var (
	_ io.Reader     = (*packCursor)(nil)
	_ io.ByteReader = (*packCursor)(nil)
)

func newPackCursor(buf []byte) *packCursor {
	return &packCursor{buf: buf}
}

func (c *packCursor) Offset() int { return c.pos }

func (c *packCursor) Len() int { return len(c.buf) - c.pos }

func (c *packCursor) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}

func (c *packCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// Next returns the next n bytes without copying, or a corrupt error naming
// what was being read.
func (c *packCursor) Next(n int, what string) ([]byte, error) {
	if n < 0 || c.Len() < n {
		return nil, errCorrupt("pack offset %d: truncated %s: need %d bytes, have %d", c.pos, what, n, c.Len())
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}
