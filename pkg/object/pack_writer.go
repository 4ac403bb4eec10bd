package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/klauspost/compress/zlib"
)

func compressPackPayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackWriter writes version 2 pack streams with zlib-compressed entries and
// a SHA-1 trailer over all preceding bytes. It backs unpack-objects fixtures
// and the fake upload-pack server used in tests.
type PackWriter struct {
	out      io.Writer
	hasher   hash.Hash
	hashedW  io.Writer
	expected uint32
	written  uint32
	finished bool
}

// NewPackWriter initializes a new writer and writes the fixed pack header.
func NewPackWriter(out io.Writer, numObjects uint32) (*PackWriter, error) {
	hasher := sha1.New()
	pw := &PackWriter{
		out:      out,
		hasher:   hasher,
		hashedW:  io.MultiWriter(out, hasher),
		expected: numObjects,
	}

	header := PackHeader{Version: 2, NumObjects: numObjects}
	if _, err := pw.hashedW.Write(header.Marshal()); err != nil {
		return nil, fmt.Errorf("write pack header: %w", err)
	}
	return pw, nil
}

func (p *PackWriter) reserve() error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}
	return nil
}

// WriteEntry appends one whole-object entry.
func (p *PackWriter) WriteEntry(objType ObjectType, data []byte) error {
	if err := p.reserve(); err != nil {
		return err
	}
	kind := EntryKindFor(objType)
	if kind == EntryUnknown {
		return fmt.Errorf("pack entry: unknown object type %q", objType)
	}
	compressed, err := compressPackPayload(data)
	if err != nil {
		return fmt.Errorf("compress pack entry: %w", err)
	}
	if _, err := p.hashedW.Write(encodePackEntryHeader(kind, uint64(len(data)))); err != nil {
		return fmt.Errorf("write pack entry header: %w", err)
	}
	if _, err := p.hashedW.Write(compressed); err != nil {
		return fmt.Errorf("write compressed pack entry: %w", err)
	}
	p.written++
	return nil
}

// WriteRefDelta appends a REF_DELTA entry that rebuilds target from the
// object base, whose content is baseData.
func (p *PackWriter) WriteRefDelta(base Hash, baseData, target []byte) error {
	return p.WriteRawRefDelta(base, buildDelta(baseData, target))
}

// WriteRawRefDelta appends a REF_DELTA entry with a caller-built delta
// payload (size varints followed by instructions).
func (p *PackWriter) WriteRawRefDelta(base Hash, payload []byte) error {
	if err := p.reserve(); err != nil {
		return err
	}
	rawBase, err := base.Bytes()
	if err != nil {
		return err
	}
	compressed, err := compressPackPayload(payload)
	if err != nil {
		return fmt.Errorf("compress delta payload: %w", err)
	}
	if _, err := p.hashedW.Write(encodePackEntryHeader(EntryRefDelta, uint64(len(payload)))); err != nil {
		return fmt.Errorf("write ref-delta header: %w", err)
	}
	if _, err := p.hashedW.Write(rawBase); err != nil {
		return fmt.Errorf("write ref-delta base id: %w", err)
	}
	if _, err := p.hashedW.Write(compressed); err != nil {
		return fmt.Errorf("write ref-delta payload: %w", err)
	}
	p.written++
	return nil
}

// Finish validates the object count, writes the trailing checksum, and
// returns it as a hex digest.
func (p *PackWriter) Finish() (string, error) {
	if p.finished {
		return "", fmt.Errorf("pack writer already finished")
	}
	if p.written != p.expected {
		return "", fmt.Errorf("pack object count mismatch: wrote %d, expected %d", p.written, p.expected)
	}
	sum := p.hasher.Sum(nil)
	if _, err := p.out.Write(sum); err != nil {
		return "", fmt.Errorf("write pack trailer checksum: %w", err)
	}
	p.finished = true
	return hex.EncodeToString(sum), nil
}
