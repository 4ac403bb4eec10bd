package object

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/osfs"
)

func TestHashObjectKnownIDs(t *testing.T) {
	tests := []struct {
		objType ObjectType
		data    string
		want    Hash
	}{
		{TypeBlob, "", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{TypeBlob, "hello world\n", "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"},
		{TypeTree, "", "4b825dc642cb6eb9a060e54bf8d69288fbee4904"},
	}
	for _, tt := range tests {
		if got := HashObject(tt.objType, []byte(tt.data)); got != tt.want {
			t.Errorf("HashObject(%s, %q) = %s, want %s", tt.objType, tt.data, got, tt.want)
		}
	}
}

func TestHashValidate(t *testing.T) {
	good := Hash("3b18e512dba79e4c8300dd08aeb37f8e728b8dad")
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate(%s): %v", good, err)
	}
	for _, bad := range []Hash{"", "abc", "3B18E512DBA79E4C8300DD08AEB37F8E728B8DAD", "zz18e512dba79e4c8300dd08aeb37f8e728b8dad"} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%q) = nil, want error", bad)
		}
	}
	raw, err := good.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if got := HashFromBytes(raw); got != good {
		t.Fatalf("HashFromBytes(Bytes()) = %s, want %s", got, good)
	}
}

func TestStoreWriteRead(t *testing.T) {
	s := NewMemStore()
	for _, objType := range []ObjectType{TypeBlob, TypeTree, TypeCommit, TypeTag} {
		for _, data := range [][]byte{nil, []byte("hello world"), bytes.Repeat([]byte{0, 1, 2, 0xff}, 4096)} {
			h, err := s.Write(objType, data)
			if err != nil {
				t.Fatalf("Write(%s): %v", objType, err)
			}
			if want := HashObject(objType, data); h != want {
				t.Fatalf("Write(%s) = %s, want %s", objType, h, want)
			}
			gotType, got, err := s.Read(h)
			if err != nil {
				t.Fatalf("Read(%s): %v", h, err)
			}
			if gotType != objType || !bytes.Equal(got, data) {
				t.Fatalf("Read(%s) = (%s, %d bytes), want (%s, %d bytes)", h, gotType, len(got), objType, len(data))
			}
		}
	}
}

func TestStoreWriteIdempotent(t *testing.T) {
	s := NewMemStore()
	h1, err := s.Write(TypeBlob, []byte("same"))
	if err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	h2, err := s.Write(TypeBlob, []byte("same"))
	if err != nil {
		t.Fatalf("Write 2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("ids differ: %s != %s", h1, h2)
	}
	_, data, err := s.Read(h1)
	if err != nil || string(data) != "same" {
		t.Fatalf("Read after rewrite = %q, %v", data, err)
	}
}

func TestStoreLayoutOnDisk(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(osfs.New(dir))
	h, err := s.Write(TypeBlob, []byte("hello world\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	fs := osfs.New(dir)
	if _, err := fs.Stat("objects/3b/18e512dba79e4c8300dd08aeb37f8e728b8dad"); err != nil {
		t.Fatalf("expected loose object file: %v", err)
	}
	if !s.Has(h) {
		t.Fatalf("Has(%s) = false", h)
	}
	if s.Has("3b18e512dba79e4c8300dd08aeb37f8e728b8dae") {
		t.Fatal("Has on absent id = true")
	}
}

func TestStoreReadMissingAndCorrupt(t *testing.T) {
	fs := memfs.New()
	s := NewStore(fs)

	if _, _, err := s.Read("0000000000000000000000000000000000000000"); err == nil {
		t.Fatal("Read of absent object: expected error")
	}

	h := HashObject(TypeBlob, []byte("x"))
	writeRawObject(t, fs, h, []byte("garbage, not zlib"))
	if _, _, err := s.Read(h); err == nil {
		t.Fatal("Read of non-zlib file: expected error")
	}

	h2 := HashObject(TypeBlob, []byte("y"))
	writeRawObject(t, fs, h2, deflate(t, []byte("blob 5\x00y")))
	if _, _, err := s.Read(h2); err == nil {
		t.Fatal("Read with length mismatch: expected error")
	}
}

func TestTypedHelpers(t *testing.T) {
	s := NewMemStore()
	blob, err := s.Write(TypeBlob, []byte("content"))
	if err != nil {
		t.Fatalf("Write blob: %v", err)
	}
	tree, err := WriteTree(s, []TreeEntry{{Mode: TreeModeFile, Name: "a.txt", Hash: blob}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	commit, err := WriteCommit(s, &CommitObj{
		TreeHash:  tree,
		Author:    "A U Thor <a@example.com> 1700000000 +0000",
		Committer: "A U Thor <a@example.com> 1700000000 +0000",
		Message:   "initial\n",
	})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	c, err := ReadCommit(s, commit)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.TreeHash != tree || c.Message != "initial\n" {
		t.Fatalf("ReadCommit = %+v", c)
	}
	entries, err := ReadTree(s, tree)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != blob {
		t.Fatalf("ReadTree = %+v", entries)
	}
	if _, err := ReadTree(s, blob); err == nil {
		t.Fatal("ReadTree on a blob: expected type mismatch")
	}
	if data, err := ReadBlob(s, blob); err != nil || string(data) != "content" {
		t.Fatalf("ReadBlob = %q, %v", data, err)
	}
}

func writeRawObject(t *testing.T, fs billy.Filesystem, h Hash, raw []byte) {
	t.Helper()
	if err := fs.MkdirAll("objects/"+string(h[:2]), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	f, err := fs.Create("objects/" + string(h[:2]) + "/" + string(h[2:]))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(raw); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func deflate(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("deflate close: %v", err)
	}
	return buf.Bytes()
}
