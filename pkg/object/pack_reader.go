package object

import (
	"bytes"
	"context"
	"crypto/sha1"
	"io"

	"github.com/klauspost/compress/zlib"
)

// UnpackStats summarizes an Unpack run.
type UnpackStats struct {
	// Entries is the entry count declared in the pack header.
	Entries int
	// Objects counts whole objects written.
	Objects int
	// Deltas counts ref-deltas resolved and written.
	Deltas int
}

// pendingDelta is a ref-delta whose base was not in the store when the
// entry was read.
type pendingDelta struct {
	offset  int
	base    Hash
	payload []byte
}

// packInflater decompresses consecutive zlib streams from a cursor, reusing
// one decompressor.
type packInflater struct {
	zr io.ReadCloser
}

func (pi *packInflater) inflate(c *packCursor, sizeHint uint64) ([]byte, error) {
	start := c.Offset()
	var err error
	if pi.zr == nil {
		pi.zr, err = zlib.NewReader(c)
	} else {
		err = pi.zr.(zlib.Resetter).Reset(c, nil)
	}
	if err != nil {
		return nil, errCorrupt("pack offset %d: zlib header: %s", start, err)
	}

	// The declared size only presizes the buffer; a hostile header must not
	// drive a large allocation.
	if sizeHint > 1<<20 {
		sizeHint = 1 << 20
	}
	buf := bytes.NewBuffer(make([]byte, 0, sizeHint))
	if _, err := io.Copy(buf, pi.zr); err != nil {
		return nil, errCorrupt("pack offset %d: inflate: %s", start, err)
	}
	return buf.Bytes(), nil
}

// Unpack parses a complete pack stream and writes every object it contains
// to store. Whole objects are written as they are read. A ref-delta whose
// base is already in the store is resolved immediately; the rest are held
// until all entries are read and then resolved in repeated passes, since a
// pack does not order bases before their deltas.
func Unpack(ctx context.Context, store ObjectStore, pack []byte) (*UnpackStats, error) {
	header, err := UnmarshalPackHeader(pack)
	if err != nil {
		return nil, err
	}

	stats := &UnpackStats{Entries: int(header.NumObjects)}
	c := newPackCursor(pack)
	c.pos = packHeaderSize

	var (
		inflater packInflater
		pending  []pendingDelta
	)
	for i := uint32(0); i < header.NumObjects; i++ {
		if err := ctx.Err(); err != nil {
			return stats, errCancelled(err)
		}

		offset := c.Offset()
		kind, size, err := readEntryHeader(c)
		if err != nil {
			return stats, err
		}

		switch kind {
		case EntryCommit, EntryTree, EntryBlob, EntryTag:
			objType, _ := kind.ObjectType()
			content, err := inflater.inflate(c, size)
			if err != nil {
				return stats, err
			}
			if _, err := store.Write(objType, content); err != nil {
				return stats, withContext(err, "pack entry %d", i)
			}
			stats.Objects++

		case EntryRefDelta:
			raw, err := c.Next(HashSize, "ref-delta base id")
			if err != nil {
				return stats, err
			}
			base := HashFromBytes(raw)
			payload, err := inflater.inflate(c, size)
			if err != nil {
				return stats, err
			}
			if !store.Has(base) {
				pending = append(pending, pendingDelta{offset: offset, base: base, payload: payload})
				continue
			}
			if err := resolveDelta(store, base, payload); err != nil {
				return stats, withContext(err, "pack offset %d", offset)
			}
			stats.Deltas++

		case EntryOfsDelta, EntryUnknown:
			return stats, errUnsupportedKind(offset, kind)
		}
	}

	if err := verifyPackTrailer(pack, c); err != nil {
		return stats, err
	}

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, errCancelled(err)
		}
		var next []pendingDelta
		for _, d := range pending {
			if !store.Has(d.base) {
				next = append(next, d)
				continue
			}
			if err := resolveDelta(store, d.base, d.payload); err != nil {
				return stats, withContext(err, "pack offset %d", d.offset)
			}
			stats.Deltas++
		}
		if len(next) == len(pending) {
			return stats, errMissingBase(next[0].base)
		}
		pending = next
	}
	return stats, nil
}

func resolveDelta(store ObjectStore, base Hash, payload []byte) error {
	objType, baseContent, err := store.Read(base)
	if err != nil {
		return err
	}
	target, err := applyDeltaPayload(baseContent, payload)
	if err != nil {
		return err
	}
	_, err = store.Write(objType, target)
	return err
}

// verifyPackTrailer accepts either no bytes after the last entry or a
// 20-byte SHA-1 of everything before it.
func verifyPackTrailer(pack []byte, c *packCursor) error {
	switch c.Len() {
	case 0:
		return nil
	case packTrailerSize:
		sum := sha1.Sum(pack[:c.Offset()])
		if !bytes.Equal(sum[:], pack[c.Offset():]) {
			return errCorrupt("pack checksum mismatch")
		}
		return nil
	}
	return errCorrupt("pack offset %d: %d unexpected trailing bytes", c.Offset(), c.Len())
}
