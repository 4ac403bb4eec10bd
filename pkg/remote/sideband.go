package remote

import (
	"bytes"
	"io"
	"strings"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/pktline"
)

// Sideband channel identifiers.
const (
	SidebandData     byte = 0x01
	SidebandProgress byte = 0x02
	SidebandError    byte = 0x03
)

// maxSidebandChunk is the largest payload one sideband pkt-line carries
// after its channel byte.
const maxSidebandChunk = pktline.MaxPayloadLen - 1

// SidebandWriter writes pkt-lines whose first payload byte names a channel.
type SidebandWriter struct {
	enc *pktline.Encoder
}

func NewSidebandWriter(w io.Writer) *SidebandWriter {
	return &SidebandWriter{enc: pktline.NewEncoder(w)}
}

func (sw *SidebandWriter) writeFrame(channel byte, data []byte) error {
	for first := true; first || len(data) > 0; first = false {
		n := len(data)
		if n > maxSidebandChunk {
			n = maxSidebandChunk
		}
		frame := make([]byte, 0, n+1)
		frame = append(frame, channel)
		frame = append(frame, data[:n]...)
		if err := sw.enc.Encode(frame); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// WriteData writes pack bytes on channel 1, split across as many pkt-lines
// as needed.
func (sw *SidebandWriter) WriteData(data []byte) error {
	return sw.writeFrame(SidebandData, data)
}

func (sw *SidebandWriter) WriteProgress(msg string) error {
	return sw.writeFrame(SidebandProgress, []byte(msg))
}

func (sw *SidebandWriter) WriteError(msg string) error {
	return sw.writeFrame(SidebandError, []byte(msg))
}

// SidebandDataReader presents channel 1 of a sideband stream as an
// io.Reader. Progress messages go to onProgress; channel 3 and ERR lines
// end the stream with a transport error. A flush, response-end or empty
// pkt-line ends the stream.
type SidebandDataReader struct {
	s          *pktline.Scanner
	onProgress func(string)
	buf        []byte
	done       bool
}

func NewSidebandDataReader(s *pktline.Scanner, onProgress func(string)) *SidebandDataReader {
	return &SidebandDataReader{s: s, onProgress: onProgress}
}

func (dr *SidebandDataReader) Read(p []byte) (int, error) {
	for len(dr.buf) == 0 {
		if dr.done {
			return 0, io.EOF
		}
		if !dr.s.Scan() {
			dr.done = true
			if err := dr.s.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		payload := dr.s.Bytes()
		if dr.s.Kind() != pktline.Data || len(payload) == 0 {
			dr.done = true
			return 0, io.EOF
		}
		if msg, ok := errLine(payload); ok {
			return 0, errcat.Errorf(twig.ErrTransport, "remote error: %s", msg)
		}
		switch payload[0] {
		case SidebandData:
			dr.buf = payload[1:]
		case SidebandProgress:
			if dr.onProgress != nil {
				dr.onProgress(strings.TrimRight(string(payload[1:]), "\r\n"))
			}
		case SidebandError:
			return 0, errcat.Errorf(twig.ErrTransport, "remote error: %s", strings.TrimSpace(string(payload[1:])))
		default:
			return 0, errcat.Errorf(twig.ErrTransport, "unknown sideband channel %d", payload[0])
		}
	}

	n := copy(p, dr.buf)
	dr.buf = dr.buf[n:]
	return n, nil
}

// errLine reports whether a pkt-line payload is an "ERR <message>" line.
func errLine(payload []byte) (string, bool) {
	if !bytes.HasPrefix(payload, []byte("ERR ")) {
		return "", false
	}
	return strings.TrimSpace(string(payload[4:])), true
}
