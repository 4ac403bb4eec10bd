package remote

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
)

func TestDecodeContent(t *testing.T) {
	original := bytes.Repeat([]byte("0032want 3b18e512dba79e4c8300dd08aeb37f8e728b8dad\n"), 50)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(original); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	zs := enc.EncodeAll(original, nil)
	enc.Close()

	tests := []struct {
		encoding string
		body     []byte
	}{
		{"", original},
		{"identity", original},
		{"gzip", gz.Bytes()},
		{"X-Gzip", gz.Bytes()},
		{"zstd", zs},
	}
	for _, tc := range tests {
		t.Run(tc.encoding, func(t *testing.T) {
			rc, err := decodeContent(tc.encoding, bytes.NewReader(tc.body))
			if err != nil {
				t.Fatalf("decodeContent: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !bytes.Equal(got, original) {
				t.Fatalf("decoded %d bytes, want %d", len(got), len(original))
			}
		})
	}
}

func TestDecodeContentUnsupported(t *testing.T) {
	_, err := decodeContent("br", bytes.NewReader(nil))
	if errcat.Category(err) != twig.ErrTransport {
		t.Fatalf("err = %v, want transport error", err)
	}
}
