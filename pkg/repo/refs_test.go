package repo

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

const (
	hashA = object.Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	hashB = object.Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestUpdateRef_ResolveRef_RoundTrip(t *testing.T) {
	r := newMemRepo(t)

	if err := r.UpdateRef("refs/heads/main", hashA); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	data, err := readFile(r.GitDir, "refs/heads/main")
	if err != nil {
		t.Fatalf("read ref file: %v", err)
	}
	if string(data) != string(hashA)+"\n" {
		t.Fatalf("ref file = %q", data)
	}

	for _, name := range []string{"refs/heads/main", "main", "HEAD"} {
		got, err := r.ResolveRef(name)
		if err != nil {
			t.Fatalf("ResolveRef(%s): %v", name, err)
		}
		if got != hashA {
			t.Errorf("ResolveRef(%s) = %q, want %q", name, got, hashA)
		}
	}
}

func TestResolveRef_TagShortName(t *testing.T) {
	r := newMemRepo(t)
	if err := r.UpdateRef("refs/tags/v1", hashB); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	got, err := r.ResolveRef("v1")
	if err != nil {
		t.Fatalf("ResolveRef(v1): %v", err)
	}
	if got != hashB {
		t.Fatalf("ResolveRef(v1) = %s", got)
	}
}

func TestWriteHead(t *testing.T) {
	r := newMemRepo(t)

	if err := r.WriteHead(string(hashA)); err != nil {
		t.Fatalf("WriteHead(detached): %v", err)
	}
	head, err := r.Head()
	if err != nil {
		t.Fatal(err)
	}
	if head != string(hashA) {
		t.Fatalf("Head() = %q, want detached %s", head, hashA)
	}
	got, err := r.ResolveRef("HEAD")
	if err != nil || got != hashA {
		t.Fatalf("ResolveRef(HEAD) = %s, %v", got, err)
	}

	if err := r.WriteHead("refs/heads/dev"); err != nil {
		t.Fatalf("WriteHead(symref): %v", err)
	}
	data, _ := readFile(r.GitDir, "HEAD")
	if string(data) != "ref: refs/heads/dev\n" {
		t.Fatalf("HEAD = %q", data)
	}
}

func TestListRefs(t *testing.T) {
	r := newMemRepo(t)

	if err := r.UpdateRef("refs/heads/main", hashA); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateRef("refs/tags/v1", hashB); err != nil {
		t.Fatal(err)
	}

	all, err := r.ListRefs("")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(all) != 2 || all["refs/heads/main"] != hashA || all["refs/tags/v1"] != hashB {
		t.Fatalf("ListRefs(\"\") = %v", all)
	}

	heads, err := r.ListRefs("heads")
	if err != nil {
		t.Fatalf("ListRefs(heads): %v", err)
	}
	if len(heads) != 1 || heads["refs/heads/main"] != hashA {
		t.Fatalf("ListRefs(heads) = %v", heads)
	}

	none, err := r.ListRefs("remotes/origin")
	if err != nil || len(none) != 0 {
		t.Fatalf("ListRefs(remotes/origin) = %v, %v", none, err)
	}
}

func TestRefErrors(t *testing.T) {
	Convey("Ref operations report categorised errors:", t, func() {
		r := newMemRepo(t)

		Convey("an unborn branch is not found", func() {
			_, err := r.ResolveRef("HEAD")
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrObjectNotFound)
		})
		Convey("unsafe ref names are rejected", func() {
			for _, name := range []string{"HEAD", "refs/../config", "refs/heads/", "refs//x", "refs/heads/x.lock", "heads/main"} {
				So(r.UpdateRef(name, hashA), errcat.ErrorShouldHaveCategory, twig.ErrUsage)
			}
		})
		Convey("a malformed hash is rejected", func() {
			So(r.UpdateRef("refs/heads/main", "xyz"), errcat.ErrorShouldHaveCategory, twig.ErrUsage)
			So(r.WriteHead("not-a-ref"), errcat.ErrorShouldHaveCategory, twig.ErrUsage)
		})
		Convey("a garbage ref file is corrupt", func() {
			So(writeFileAtomic(r.GitDir, "refs/heads/main", []byte("garbage\n")), ShouldBeNil)
			_, err := r.ResolveRef("main")
			So(err, errcat.ErrorShouldHaveCategory, twig.ErrCorrupt)
		})
	})
}
