package object

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// HashObject computes the SHA-1 of the envelope "type len\0content", the
// identity Git assigns to an object.
func HashObject(objType ObjectType, data []byte) Hash {
	h := sha1.New()
	h.Write(envelopeHeader(objType, len(data)))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashFromBytes renders a 20-byte binary id as a Hash.
func HashFromBytes(raw []byte) Hash {
	return Hash(hex.EncodeToString(raw))
}

// Bytes returns the 20-byte binary form of h.
func (h Hash) Bytes() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return hex.DecodeString(string(h))
}

// Validate checks that h is 40 lowercase hex characters.
func (h Hash) Validate() error {
	if len(h) != HashHexSize {
		return errInvalidHash(h, "length "+strconv.Itoa(len(h))+", expected 40")
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return errInvalidHash(h, "non-hex character at "+strconv.Itoa(i))
		}
	}
	return nil
}

func envelopeHeader(objType ObjectType, n int) []byte {
	buf := make([]byte, 0, len(objType)+12)
	buf = append(buf, objType...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(n), 10)
	return append(buf, 0)
}
