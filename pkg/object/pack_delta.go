package object

import "bytes"

// copyZeroSize is the length a copy instruction carries when none of its
// size bytes are present.
const copyZeroSize = 0x10000

// DeltaInstruction is one operation of a delta instruction stream: a Copy
// from the base or an Insert of literal bytes.
type DeltaInstruction interface {
	apply(out, base []byte) ([]byte, error)
	encode(out []byte) []byte
}

// Copy appends base[Offset : Offset+Size] to the target.
type Copy struct {
	Offset uint32
	Size   uint32
}

// Insert appends Data verbatim. Data holds 1 to 127 bytes.
type Insert struct {
	Data []byte
}

func (c Copy) apply(out, base []byte) ([]byte, error) {
	end := uint64(c.Offset) + uint64(c.Size)
	if end > uint64(len(base)) {
		return nil, errCorrupt("delta copy [%d:%d] out of bounds for base of %d bytes", c.Offset, end, len(base))
	}
	return append(out, base[c.Offset:end]...), nil
}

// maxCopySize is the largest size a single copy operand can carry.
const maxCopySize = 0xFFFFFF

// encode writes c, splitting it into several copies when Size does not fit
// the 24-bit operand.
func (c Copy) encode(out []byte) []byte {
	for c.Size > maxCopySize {
		out = Copy{Offset: c.Offset, Size: copyZeroSize}.encodeOne(out)
		c.Offset += copyZeroSize
		c.Size -= copyZeroSize
	}
	return c.encodeOne(out)
}

func (c Copy) encodeOne(out []byte) []byte {
	cmd := byte(0x80)
	var args []byte
	for i := uint(0); i < 4; i++ {
		if b := byte(c.Offset >> (8 * i)); b != 0 {
			cmd |= 1 << i
			args = append(args, b)
		}
	}
	size := c.Size
	if size == copyZeroSize {
		size = 0
	}
	for i := uint(0); i < 3; i++ {
		if b := byte(size >> (8 * i)); b != 0 {
			cmd |= 0x10 << i
			args = append(args, b)
		}
	}
	out = append(out, cmd)
	return append(out, args...)
}

func (in Insert) apply(out, _ []byte) ([]byte, error) {
	return append(out, in.Data...), nil
}

// encode writes in as inserts of at most 127 bytes each.
func (in Insert) encode(out []byte) []byte {
	for data := in.Data; len(data) > 0; {
		n := len(data)
		if n > 127 {
			n = 127
		}
		out = append(out, byte(n))
		out = append(out, data[:n]...)
		data = data[n:]
	}
	return out
}

// DecodeDeltaInstructions decodes an instruction stream (the delta payload
// after its two size varints). Control byte 0 and truncated operands are
// corrupt.
func DecodeDeltaInstructions(stream []byte) ([]DeltaInstruction, error) {
	var out []DeltaInstruction
	c := newPackCursor(stream)
	for c.Len() > 0 {
		at := c.Offset()
		cmd, _ := c.ReadByte()
		if cmd&0x80 != 0 {
			var offset, size uint32
			for i := uint(0); i < 4; i++ {
				if cmd&(1<<i) == 0 {
					continue
				}
				b, err := c.ReadByte()
				if err != nil {
					return nil, errCorrupt("delta offset %d: copy offset truncated", at)
				}
				offset |= uint32(b) << (8 * i)
			}
			for i := uint(0); i < 3; i++ {
				if cmd&(0x10<<i) == 0 {
					continue
				}
				b, err := c.ReadByte()
				if err != nil {
					return nil, errCorrupt("delta offset %d: copy size truncated", at)
				}
				size |= uint32(b) << (8 * i)
			}
			if size == 0 {
				size = copyZeroSize
			}
			out = append(out, Copy{Offset: offset, Size: size})
			continue
		}
		if cmd == 0 {
			return nil, errCorrupt("delta offset %d: reserved instruction 0", at)
		}
		data, err := c.Next(int(cmd), "delta insert")
		if err != nil {
			return nil, err
		}
		out = append(out, Insert{Data: data})
	}
	return out, nil
}

// ApplyDelta reconstructs a target buffer from base by running instructions
// in order.
func ApplyDelta(instructions []DeltaInstruction, base []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	for _, in := range instructions {
		if out, err = in.apply(out, base); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeDeltaInstructions serializes instructions into a stream that
// DecodeDeltaInstructions reads back.
func EncodeDeltaInstructions(instructions []DeltaInstruction) []byte {
	var out []byte
	for _, in := range instructions {
		out = in.encode(out)
	}
	return out
}

// applyDeltaPayload applies a full delta payload (base size, target size,
// instructions) and checks both declared sizes.
func applyDeltaPayload(base, payload []byte) ([]byte, error) {
	baseSize, rest, err := DecodeDeltaSize(payload)
	if err != nil {
		return nil, err
	}
	if baseSize != uint64(len(base)) {
		return nil, errCorrupt("delta base size mismatch: header=%d actual=%d", baseSize, len(base))
	}
	targetSize, rest, err := DecodeDeltaSize(rest)
	if err != nil {
		return nil, err
	}
	instructions, err := DecodeDeltaInstructions(rest)
	if err != nil {
		return nil, err
	}
	out, err := ApplyDelta(instructions, base)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != targetSize {
		return nil, errCorrupt("delta result size mismatch: header=%d actual=%d", targetSize, len(out))
	}
	return out, nil
}

// buildDelta encodes target against base as a delta payload: a copy of the
// longest common prefix and suffix around literal inserts. It is what the
// pack writer uses for ref-delta entries.
func buildDelta(base, target []byte) []byte {
	var out bytes.Buffer
	out.Write(encodeDeltaVarint(uint64(len(base))))
	out.Write(encodeDeltaVarint(uint64(len(target))))

	prefix := commonPrefix(base, target)
	suffix := commonSuffix(base[prefix:], target[prefix:])

	var instructions []DeltaInstruction
	instructions = appendCopies(instructions, 0, prefix)
	for mid := target[prefix : len(target)-suffix]; len(mid) > 0; {
		n := len(mid)
		if n > 127 {
			n = 127
		}
		instructions = append(instructions, Insert{Data: mid[:n]})
		mid = mid[n:]
	}
	instructions = appendCopies(instructions, len(base)-suffix, suffix)

	out.Write(EncodeDeltaInstructions(instructions))
	return out.Bytes()
}

func appendCopies(instructions []DeltaInstruction, offset, n int) []DeltaInstruction {
	for n > 0 {
		size := n
		if size > copyZeroSize {
			size = copyZeroSize
		}
		instructions = append(instructions, Copy{Offset: uint32(offset), Size: uint32(size)})
		offset += size
		n -= size
	}
	return instructions
}

func commonPrefix(a, b []byte) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func commonSuffix(a, b []byte) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}
