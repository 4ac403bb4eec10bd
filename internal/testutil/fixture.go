// Package testutil builds fixture repositories and serves them over an
// in-process smart-HTTP protocol v2 endpoint.
package testutil

import (
	"bytes"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/remote"
)

// File is one file of a fixture working tree.
type File struct {
	Path       string
	Content    string
	Executable bool
}

// Object is an encoded object of a fixture repository.
type Object struct {
	Hash object.Hash
	Type object.ObjectType
	Data []byte
}

// Repo is a single-commit fixture repository.
type Repo struct {
	Objects []Object
	Tree    object.Hash
	Commit  object.Hash
	Branch  string
}

// BuildRepo encodes files into blobs, nested trees and one commit on
// refs/heads/main.
func BuildRepo(t testing.TB, files []File) *Repo {
	t.Helper()
	r := &Repo{Branch: "refs/heads/main"}
	tree, err := r.buildTree(files, "")
	if err != nil {
		t.Fatalf("build fixture tree: %v", err)
	}
	r.Tree = tree
	r.Commit = r.add(object.TypeCommit, object.MarshalCommit(&object.CommitObj{
		TreeHash:  tree,
		Author:    "Fixture <fixture@example.com> 1700000000 +0000",
		Committer: "Fixture <fixture@example.com> 1700000000 +0000",
		Message:   "fixture commit\n",
	}))
	return r
}

func (r *Repo) add(objType object.ObjectType, data []byte) object.Hash {
	h := object.HashObject(objType, data)
	for _, o := range r.Objects {
		if o.Hash == h {
			return h
		}
	}
	r.Objects = append(r.Objects, Object{Hash: h, Type: objType, Data: data})
	return h
}

func (r *Repo) buildTree(files []File, prefix string) (object.Hash, error) {
	var entries []object.TreeEntry
	subdirs := map[string][]File{}
	for _, f := range files {
		rel := strings.TrimPrefix(f.Path, prefix)
		if dir, _, ok := strings.Cut(rel, "/"); ok {
			subdirs[dir] = append(subdirs[dir], f)
			continue
		}
		mode := object.TreeModeFile
		if f.Executable {
			mode = object.TreeModeExecutable
		}
		entries = append(entries, object.TreeEntry{
			Mode: mode,
			Name: rel,
			Hash: r.add(object.TypeBlob, []byte(f.Content)),
		})
	}
	names := make([]string, 0, len(subdirs))
	for name := range subdirs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h, err := r.buildTree(subdirs[name], path.Join(prefix, name)+"/")
		if err != nil {
			return "", err
		}
		entries = append(entries, object.TreeEntry{Mode: object.TreeModeDir, Name: name, Hash: h})
	}
	data, err := object.MarshalTree(entries)
	if err != nil {
		return "", err
	}
	return r.add(object.TypeTree, data), nil
}

// Refs returns the ls-refs advertisement for the fixture: HEAD as a symref
// to the branch, then the branch itself.
func (r *Repo) Refs() []remote.Ref {
	return []remote.Ref{
		{Name: "HEAD", Hash: r.Commit, SymrefTarget: r.Branch},
		{Name: r.Branch, Hash: r.Commit},
	}
}

// PackOptions controls how Pack encodes the fixture.
type PackOptions struct {
	// Deltas encodes every blob after the first as a ref-delta against the
	// previous blob.
	Deltas bool
	// DeltasFirst places delta entries before all whole objects.
	DeltasFirst bool
}

// Pack encodes all fixture objects into a pack stream.
func (r *Repo) Pack(t testing.TB, opts PackOptions) []byte {
	t.Helper()
	type entry struct {
		obj  Object
		base *Object
	}
	var whole, deltas []entry
	var prevBlob *Object
	for i := range r.Objects {
		o := r.Objects[i]
		if opts.Deltas && o.Type == object.TypeBlob && prevBlob != nil {
			deltas = append(deltas, entry{obj: o, base: prevBlob})
		} else {
			whole = append(whole, entry{obj: o})
		}
		if o.Type == object.TypeBlob {
			prevBlob = &r.Objects[i]
		}
	}
	var ordered []entry
	if opts.DeltasFirst {
		ordered = append(append(ordered, deltas...), whole...)
	} else {
		ordered = append(append(ordered, whole...), deltas...)
	}

	var buf bytes.Buffer
	pw, err := object.NewPackWriter(&buf, uint32(len(ordered)))
	if err != nil {
		t.Fatalf("NewPackWriter: %v", err)
	}
	for _, e := range ordered {
		if e.base != nil {
			err = pw.WriteRefDelta(e.base.Hash, e.base.Data, e.obj.Data)
		} else {
			err = pw.WriteEntry(e.obj.Type, e.obj.Data)
		}
		if err != nil {
			t.Fatalf("write fixture pack entry %s: %v", e.obj.Hash, err)
		}
	}
	if _, err := pw.Finish(); err != nil {
		t.Fatalf("finish fixture pack: %v", err)
	}
	return buf.Bytes()
}
