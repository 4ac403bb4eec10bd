package object

import (
	"bytes"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/klauspost/compress/zlib"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"
)

// ObjectReader reads objects by id.
type ObjectReader interface {
	Read(h Hash) (ObjectType, []byte, error)
	Has(h Hash) bool
}

// ObjectWriter writes objects and returns their id.
type ObjectWriter interface {
	Write(objType ObjectType, data []byte) (Hash, error)
}

// ObjectStore is the contract the pack parser, checkout and plumbing commands
// are written against.
type ObjectStore interface {
	ObjectReader
	ObjectWriter
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// CompressionLevel is the zlib level for written objects. Zero selects
	// zlib.BestSpeed.
	CompressionLevel int
}

// Store is a content-addressed loose object store with a 2-character
// fan-out directory layout: objects/ab/cdef0123...
// Each file holds the zlib-compressed envelope "type len\0content".
type Store struct {
	fs    billy.Filesystem
	level int
}

var _ ObjectStore = (*Store)(nil)

// NewStore creates a Store rooted at fs, which is the repository metadata
// directory (the one holding objects/). The objects/ subdirectory is created
// lazily on first write.
func NewStore(fs billy.Filesystem) *Store {
	return NewStoreWithOptions(fs, StoreOptions{})
}

// NewStoreWithOptions creates a Store with explicit options.
func NewStoreWithOptions(fs billy.Filesystem, opts StoreOptions) *Store {
	level := opts.CompressionLevel
	if level == 0 || level < zlib.HuffmanOnly || level > zlib.BestCompression {
		level = zlib.BestSpeed
	}
	return &Store{fs: fs, level: level}
}

// NewMemStore returns a Store backed by an in-memory filesystem.
func NewMemStore() *Store {
	return NewStore(memfs.New())
}

func (s *Store) objectDir(h Hash) string {
	return path.Join("objects", string(h[:2]))
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return path.Join("objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if h.Validate() != nil {
		return false
	}
	_, err := s.fs.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. Writing an object
// that already exists is a no-op. New objects are written to a temp file and
// renamed into place.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	if _, ok := ParseObjectType(string(objType)); !ok {
		return "", errCorrupt("object write: unknown type %q", objType)
	}
	h := HashObject(objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, s.level)
	if err != nil {
		return "", errIO("object write deflate", err)
	}
	zw.Write(envelopeHeader(objType, len(data)))
	zw.Write(data)
	if err := zw.Close(); err != nil {
		return "", errIO("object write deflate", err)
	}

	dir := s.objectDir(h)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errIO("object write mkdir", err)
	}

	tmp, err := s.fs.TempFile(dir, ".tmp-")
	if err != nil {
		return "", errIO("object write tmpfile", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return "", errIO("object write", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return "", errIO("object write close", err)
	}

	if err := s.fs.Rename(tmpName, s.objectPath(h)); err != nil {
		s.fs.Remove(tmpName)
		return "", errIO("object write rename", err)
	}
	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if err := h.Validate(); err != nil {
		return "", nil, err
	}
	f, err := s.fs.Open(s.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errNotFound(h)
		}
		return "", nil, errIO("object read "+string(h), err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return "", nil, errCorrupt("object read %s: %s", h, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, errCorrupt("object read %s: inflate: %s", h, err)
	}
	if err := zr.Close(); err != nil && err != io.EOF {
		return "", nil, errCorrupt("object read %s: inflate: %s", h, err)
	}

	return parseEnvelope(h, raw)
}

// parseEnvelope splits "type len\0content" and checks the declared length.
func parseEnvelope(h Hash, raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, errCorrupt("object read %s: invalid format (no NUL)", h)
	}
	header := raw[:nulIdx]
	content := raw[nulIdx+1:]

	sp := bytes.IndexByte(header, ' ')
	if sp < 0 {
		return "", nil, errCorrupt("object read %s: invalid header %q", h, header)
	}
	objType, ok := ParseObjectType(string(header[:sp]))
	if !ok {
		return "", nil, errCorrupt("object read %s: unknown type %q", h, header[:sp])
	}
	length, err := strconv.Atoi(string(header[sp+1:]))
	if err != nil {
		return "", nil, errCorrupt("object read %s: invalid length %q", h, header[sp+1:])
	}
	if len(content) != length {
		return "", nil, errCorrupt("object read %s: length mismatch (header=%d, actual=%d)", h, length, len(content))
	}
	return objType, content, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// ReadBlob reads a blob's content.
func ReadBlob(r ObjectReader, h Hash) ([]byte, error) {
	return readTyped(r, h, TypeBlob)
}

// ReadTree reads and parses a tree object.
func ReadTree(r ObjectReader, h Hash) ([]TreeEntry, error) {
	data, err := readTyped(r, h, TypeTree)
	if err != nil {
		return nil, err
	}
	entries, err := ParseTree(data)
	if err != nil {
		return nil, withContext(err, "tree %s", h)
	}
	return entries, nil
}

// WriteTree serializes and stores a tree.
func WriteTree(w ObjectWriter, entries []TreeEntry) (Hash, error) {
	data, err := MarshalTree(entries)
	if err != nil {
		return "", err
	}
	return w.Write(TypeTree, data)
}

// ReadCommit reads and parses a commit object.
func ReadCommit(r ObjectReader, h Hash) (*CommitObj, error) {
	data, err := readTyped(r, h, TypeCommit)
	if err != nil {
		return nil, err
	}
	c, err := ParseCommit(data)
	if err != nil {
		return nil, withContext(err, "commit %s", h)
	}
	return c, nil
}

// WriteCommit serializes and stores a commit.
func WriteCommit(w ObjectWriter, c *CommitObj) (Hash, error) {
	return w.Write(TypeCommit, MarshalCommit(c))
}

func readTyped(r ObjectReader, h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := r.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, errCorrupt("object %s: type mismatch: got %q, want %q", h, objType, want)
	}
	return data, nil
}
