package repo

import (
	"testing"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/internal/testutil"
	"github.com/odvcencio/twig/pkg/object"
)

func TestResolvePath(t *testing.T) {
	fx := testutil.BuildRepo(t, fixtureFiles)
	r := newMemRepo(t)
	for _, o := range fx.Objects {
		if _, err := r.Store.Write(o.Type, o.Data); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.UpdateRef("refs/heads/main", fx.Commit); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		rev, path string
		want      string
	}{
		{rev: "main", path: "README.md", want: "# twig\n"},
		{rev: "HEAD", path: "pkg/object/hash.go", want: "package object\n"},
		{rev: string(fx.Commit), path: "scripts/build.sh", want: "#!/bin/sh\ngo build ./...\n"},
		{rev: string(fx.Tree), path: "cmd/twig/main.go", want: "package main\n"},
	}
	for _, tc := range tests {
		h, err := r.ResolvePath(tc.rev, tc.path)
		if err != nil {
			t.Fatalf("ResolvePath(%s, %s): %v", tc.rev, tc.path, err)
		}
		data, err := object.ReadBlob(r.Store, h)
		if err != nil {
			t.Fatalf("read %s: %v", h, err)
		}
		if string(data) != tc.want {
			t.Fatalf("%s:%s = %q, want %q", tc.rev, tc.path, data, tc.want)
		}
	}

	root, err := r.ResolvePath("main", "")
	if err != nil || root != fx.Tree {
		t.Fatalf("ResolvePath(main, \"\") = %s, %v; want %s", root, err, fx.Tree)
	}
	dir, err := r.ResolvePath("main", "pkg/object/")
	if err != nil {
		t.Fatalf("ResolvePath(pkg/object/): %v", err)
	}
	if _, ok, _ := r.TreeEntryAtPath(dir, "hash.go"); !ok {
		t.Fatal("hash.go not found below pkg/object")
	}

	for _, missing := range []string{"nope", "README.md/x", "pkg/absent.go"} {
		_, err := r.ResolvePath("main", missing)
		if errcat.Category(err) != twig.ErrObjectNotFound {
			t.Fatalf("ResolvePath(%q) = %v, want object-not-found", missing, err)
		}
	}
}
