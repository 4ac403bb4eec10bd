package object

import (
	"encoding/binary"
	"io"
)

const (
	packHeaderSize  = 12
	packTrailerSize = HashSize
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

// EntryKind is the object kind encoded in bits 4-6 of a pack entry header.
type EntryKind uint8

const (
	EntryUnknown  EntryKind = 0
	EntryCommit   EntryKind = 1
	EntryTree     EntryKind = 2
	EntryBlob     EntryKind = 3
	EntryTag      EntryKind = 4
	EntryOfsDelta EntryKind = 6
	EntryRefDelta EntryKind = 7
)

func entryKindFromBits(b byte) EntryKind {
	switch k := EntryKind(b); k {
	case EntryCommit, EntryTree, EntryBlob, EntryTag, EntryOfsDelta, EntryRefDelta:
		return k
	}
	return EntryUnknown
}

func (k EntryKind) String() string {
	switch k {
	case EntryCommit:
		return "commit"
	case EntryTree:
		return "tree"
	case EntryBlob:
		return "blob"
	case EntryTag:
		return "tag"
	case EntryOfsDelta:
		return "ofs_delta"
	case EntryRefDelta:
		return "ref_delta"
	}
	return "unknown"
}

// ObjectType returns the object type for whole-object kinds.
func (k EntryKind) ObjectType() (ObjectType, bool) {
	switch k {
	case EntryCommit:
		return TypeCommit, true
	case EntryTree:
		return TypeTree, true
	case EntryBlob:
		return TypeBlob, true
	case EntryTag:
		return TypeTag, true
	}
	return "", false
}

// EntryKindFor maps an object type to its pack entry kind.
func EntryKindFor(t ObjectType) EntryKind {
	switch t {
	case TypeCommit:
		return EntryCommit
	case TypeTree:
		return EntryTree
	case TypeBlob:
		return EntryBlob
	case TypeTag:
		return EntryTag
	}
	return EntryUnknown
}

// PackHeader is the fixed-size Git pack header.
//
// Bytes:
//   - 0..3:  "PACK"
//   - 4..7:  version (big-endian)
//   - 8..11: number of objects (big-endian)
type PackHeader struct {
	Version    uint32
	NumObjects uint32
}

// Marshal serializes the header to the canonical 12-byte pack header.
func (h PackHeader) Marshal() []byte {
	buf := make([]byte, packHeaderSize)
	copy(buf[:4], packMagic[:])
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	binary.BigEndian.PutUint32(buf[8:12], h.NumObjects)
	return buf
}

// UnmarshalPackHeader parses a pack header. Versions 2 and 3 share the same
// entry encoding and are both accepted.
func UnmarshalPackHeader(data []byte) (*PackHeader, error) {
	if len(data) < packHeaderSize {
		return nil, errCorrupt("pack header too short: got %d bytes", len(data))
	}
	if string(data[:4]) != string(packMagic[:]) {
		return nil, errCorrupt("invalid pack magic %q", data[:4])
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != 2 && version != 3 {
		return nil, errCorrupt("unsupported pack version %d", version)
	}
	return &PackHeader{
		Version:    version,
		NumObjects: binary.BigEndian.Uint32(data[8:12]),
	}, nil
}

// encodePackEntryHeader encodes the variable-length entry header.
func encodePackEntryHeader(kind EntryKind, size uint64) []byte {
	b := byte((kind & 0x7) << 4)
	b |= byte(size & 0x0f)
	size >>= 4

	out := make([]byte, 0, 10)
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)

	for size > 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			next |= 0x80
		}
		out = append(out, next)
	}
	return out
}

// DecodeEntryHeader decodes one pack entry header from the front of data and
// returns the kind, the declared size, and the bytes that follow the header.
// A header whose continuation bit runs off the end of data is corrupt.
func DecodeEntryHeader(data []byte) (EntryKind, uint64, []byte, error) {
	c := newPackCursor(data)
	kind, size, err := readEntryHeader(c)
	if err != nil {
		return EntryUnknown, 0, nil, err
	}
	return kind, size, data[c.Offset():], nil
}

func readEntryHeader(c *packCursor) (EntryKind, uint64, error) {
	start := c.Offset()
	b, err := c.ReadByte()
	if err != nil {
		return EntryUnknown, 0, errCorrupt("pack offset %d: entry header truncated", start)
	}
	kind := entryKindFromBits((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)
	for b&0x80 != 0 {
		if shift > 60 {
			return EntryUnknown, 0, errCorrupt("pack offset %d: entry size overflows", start)
		}
		if b, err = c.ReadByte(); err != nil {
			return EntryUnknown, 0, errCorrupt("pack offset %d: entry header truncated", start)
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}
	return kind, size, nil
}

func encodeDeltaVarint(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	out := make([]byte, 0, 10)
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// DecodeDeltaSize decodes one delta size varint (7 bits per byte, least
// significant group first) and returns the value and the remaining bytes.
func DecodeDeltaSize(data []byte) (uint64, []byte, error) {
	c := newPackCursor(data)
	v, err := decodeDeltaVarint(c)
	if err != nil {
		return 0, nil, err
	}
	return v, data[c.Offset():], nil
}

func decodeDeltaVarint(r io.ByteReader) (uint64, error) {
	var (
		value uint64
		shift uint
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, errCorrupt("delta size varint truncated")
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 63 {
			return 0, errCorrupt("delta size varint too large")
		}
	}
}
