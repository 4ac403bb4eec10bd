package remote

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/pktline"
)

const (
	idA = object.Hash("1111111111111111111111111111111111111111")
	idB = object.Hash("2222222222222222222222222222222222222222")
)

func TestRequestEncoding(t *testing.T) {
	if got, want := string(encodeLsRefsRequest()), "0014command=ls-refs\n0001000csymrefs\n0000"; got != want {
		t.Fatalf("ls-refs request = %q, want %q", got, want)
	}
	got := string(encodeFetchRequest([]object.Hash{idA}))
	want := "0012command=fetch\n" + "0001" +
		"0032want " + string(idA) + "\n" +
		"0010no-progress\n" +
		"0009done\n" +
		"0000"
	if got != want {
		t.Fatalf("fetch request = %q, want %q", got, want)
	}
}

func TestReadRefs(t *testing.T) {
	var buf bytes.Buffer
	enc := pktline.NewEncoder(&buf)
	_ = enc.EncodeString(string(idA) + " HEAD symref-target:refs/heads/main\n")
	_ = enc.EncodeString(string(idA) + " refs/heads/main\n")
	_ = enc.EncodeString(string(idB) + " refs/tags/v1 peeled:" + string(idA) + "\n")
	_ = enc.Flush()

	refs, err := readRefs(&buf)
	if err != nil {
		t.Fatalf("readRefs: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3", len(refs))
	}
	if refs[0].Name != "HEAD" || refs[0].Hash != idA || refs[0].SymrefTarget != "refs/heads/main" {
		t.Fatalf("HEAD ref = %+v", refs[0])
	}
	if refs[2].Peeled != idA {
		t.Fatalf("tag ref = %+v", refs[2])
	}
}

func TestReadFetchResponse(t *testing.T) {
	pack := bytes.Repeat([]byte("PACKDATA"), 20000)

	var buf bytes.Buffer
	enc := pktline.NewEncoder(&buf)
	_ = enc.EncodeString("acknowledgments\n")
	_ = enc.EncodeString("ready\n")
	_ = enc.Delim()
	_ = enc.EncodeString("packfile\n")
	sw := NewSidebandWriter(&buf)
	_ = sw.WriteProgress("Counting objects: 3\r")
	_ = sw.WriteData(pack)
	_ = enc.Flush()

	var progress []string
	got, err := readFetchResponse(&buf, func(msg string) { progress = append(progress, msg) })
	if err != nil {
		t.Fatalf("readFetchResponse: %v", err)
	}
	if !bytes.Equal(got, pack) {
		t.Fatalf("pack mismatch: got %d bytes, want %d", len(got), len(pack))
	}
	if len(progress) != 1 || progress[0] != "Counting objects: 3" {
		t.Fatalf("progress = %q", progress)
	}
}

func TestProtocolErrors(t *testing.T) {
	Convey("Malformed responses are transport errors:", t, func() {
		Convey("a ref line with a short id", func() {
			_, err := readRefs(strings.NewReader("000dabc HEAD\n0000"))
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrTransport)
		})
		Convey("a ref line without a name", func() {
			_, err := parseRefLine(string(idA))
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrTransport)
		})
		Convey("an ERR line during ls-refs", func() {
			_, err := readRefs(strings.NewReader("0012ERR not found\n0000"))
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrTransport)
		})
		Convey("a refs response without flush", func() {
			var buf bytes.Buffer
			_ = pktline.NewEncoder(&buf).EncodeString(string(idA) + " HEAD\n")
			_, err := readRefs(&buf)
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrTransport)
		})
		Convey("a fetch response without a packfile section", func() {
			_, err := readFetchResponse(strings.NewReader("0014acknowledgments\n0000"), nil)
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrTransport)
		})
		Convey("a sideband error on channel 3", func() {
			var buf bytes.Buffer
			_ = pktline.NewEncoder(&buf).EncodeString("packfile\n")
			_ = NewSidebandWriter(&buf).WriteError("upload-pack: out of memory")
			_, err := readFetchResponse(&buf, nil)
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrTransport)
			So(err.Error(), ShouldContainSubstring, "out of memory")
		})
		Convey("an unknown sideband channel", func() {
			var buf bytes.Buffer
			enc := pktline.NewEncoder(&buf)
			_ = enc.EncodeString("packfile\n")
			_ = enc.Encode([]byte{9, 'x'})
			_, err := readFetchResponse(&buf, nil)
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrTransport)
		})
	})
}
