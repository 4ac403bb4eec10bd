// Package pktline reads and writes Git's pkt-line framing: every record is
// prefixed by four hex digits giving its total length including the prefix.
// The lengths 0000, 0001 and 0002 are the payload-free flush, delimiter and
// response-end markers used by protocol version 2.
package pktline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
)

const (
	// MaxPayloadLen is the largest payload a single pkt-line can carry.
	MaxPayloadLen = 65516

	prefixLen = 4
	maxLen    = MaxPayloadLen + prefixLen
)

// Kind tells a data line apart from the special markers.
type Kind int

const (
	Data Kind = iota
	Flush
	Delim
	ResponseEnd
)

func (k Kind) String() string {
	switch k {
	case Flush:
		return "flush"
	case Delim:
		return "delim"
	case ResponseEnd:
		return "response-end"
	}
	return "data"
}

var markers = map[Kind]string{
	Flush:       "0000",
	Delim:       "0001",
	ResponseEnd: "0002",
}

// Encoder writes pkt-line records.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes p as a single data record.
func (e *Encoder) Encode(p []byte) error {
	if len(p) > MaxPayloadLen {
		return errcat.Errorf(twig.ErrTransport, "pkt-line payload of %d bytes exceeds %d", len(p), MaxPayloadLen)
	}
	if _, err := fmt.Fprintf(e.w, "%04x", len(p)+prefixLen); err != nil {
		return err
	}
	_, err := e.w.Write(p)
	return err
}

// EncodeString writes s as a single data record.
func (e *Encoder) EncodeString(s string) error {
	return e.Encode([]byte(s))
}

// Flush writes a flush-pkt.
func (e *Encoder) Flush() error { return e.marker(Flush) }

// Delim writes a delim-pkt.
func (e *Encoder) Delim() error { return e.marker(Delim) }

// ResponseEnd writes a response-end-pkt.
func (e *Encoder) ResponseEnd() error { return e.marker(ResponseEnd) }

func (e *Encoder) marker(k Kind) error {
	_, err := io.WriteString(e.w, markers[k])
	return err
}

// Scanner reads pkt-line records one at a time, in the manner of
// bufio.Scanner.
type Scanner struct {
	r       *bufio.Reader
	payload []byte
	kind    Kind
	err     error
	offset  int64
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Scan advances to the next record. It returns false at the end of input
// or on error; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	s.payload = s.payload[:0]
	s.kind = Data

	var prefix [prefixLen]byte
	n, err := io.ReadFull(s.r, prefix[:])
	if err == io.EOF {
		return false
	}
	if err != nil {
		s.err = errcat.Errorf(twig.ErrTransport, "pkt-line at offset %d: truncated length prefix (%d bytes)", s.offset, n)
		return false
	}

	length, ok := parseHex4(prefix)
	if !ok {
		s.err = errcat.Errorf(twig.ErrTransport, "pkt-line at offset %d: invalid length prefix %q", s.offset, prefix[:])
		return false
	}
	switch {
	case length == 0:
		s.kind = Flush
	case length == 1:
		s.kind = Delim
	case length == 2:
		s.kind = ResponseEnd
	case length < prefixLen:
		s.err = errcat.Errorf(twig.ErrTransport, "pkt-line at offset %d: invalid length %d", s.offset, length)
		return false
	case length > maxLen:
		s.err = errcat.Errorf(twig.ErrTransport, "pkt-line at offset %d: length %d exceeds %d", s.offset, length, maxLen)
		return false
	}
	if s.kind != Data {
		s.offset += prefixLen
		return true
	}

	size := length - prefixLen
	if cap(s.payload) < size {
		s.payload = make([]byte, size)
	}
	s.payload = s.payload[:size]
	if _, err := io.ReadFull(s.r, s.payload); err != nil {
		s.err = errcat.Errorf(twig.ErrTransport, "pkt-line at offset %d: truncated payload: %s", s.offset, err)
		return false
	}
	s.offset += int64(length)
	return true
}

// Kind reports what the current record is.
func (s *Scanner) Kind() Kind { return s.kind }

// Bytes returns the current record's payload. The slice is reused by the
// next call to Scan.
func (s *Scanner) Bytes() []byte { return s.payload }

// Text returns the payload with one trailing newline removed.
func (s *Scanner) Text() string {
	p := s.payload
	if n := len(p); n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	return string(p)
}

// Err returns the first framing or read error met by Scan.
func (s *Scanner) Err() error { return s.err }

func parseHex4(b [prefixLen]byte) (int, bool) {
	v := 0
	for _, c := range b {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= int(c - '0')
		case c >= 'a' && c <= 'f':
			v |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= int(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}
