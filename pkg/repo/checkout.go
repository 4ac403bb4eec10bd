package repo

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-billy.v4"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

// CheckoutStats counts what a checkout wrote.
type CheckoutStats struct {
	Files int `refmt:"files"`
	Dirs  int `refmt:"dirs"`
}

type checkout struct {
	ctx   context.Context
	store object.ObjectReader
	dst   billy.Filesystem
	stats CheckoutStats
}

// CheckoutTree writes the tree treeID into dst. Directories are created
// lazily, including the root of dst. Regular files are written with mode
// 0644 and executable files with 0755; any other mode is
// ErrUnsupportedFileMode. Entry names that would escape their directory or
// touch .git are ErrCorrupt.
func CheckoutTree(ctx context.Context, store object.ObjectReader, treeID object.Hash, dst billy.Filesystem) (*CheckoutStats, error) {
	co := &checkout{ctx: ctx, store: store, dst: dst}
	if err := co.tree(treeID, ""); err != nil {
		return nil, err
	}
	return &co.stats, nil
}

// CheckoutCommit checks out the tree of commit into the working tree.
func (r *Repo) CheckoutCommit(ctx context.Context, commit object.Hash) (*CheckoutStats, error) {
	c, err := object.ReadCommit(r.Store, commit)
	if err != nil {
		return nil, recategorise("checkout "+string(commit), err)
	}
	return CheckoutTree(ctx, r.Store, c.TreeHash, r.Worktree)
}

func (co *checkout) tree(treeID object.Hash, dir string) error {
	if err := co.ctx.Err(); err != nil {
		return errcat.Errorf(twig.ErrCancelled, "checkout: %s", err)
	}
	entries, err := object.ReadTree(co.store, treeID)
	if err != nil {
		return recategorise("checkout: read tree "+string(treeID), err)
	}
	if dir == "" {
		if err := co.dst.MkdirAll(".", 0o755); err != nil {
			return errIO("checkout: mkdir destination", err)
		}
	}

	for _, e := range entries {
		if err := checkEntryName(e.Name); err != nil {
			return errcat.Errorf(twig.ErrCorrupt, "checkout: tree %s: %s", treeID, err)
		}
		p := path.Join(dir, e.Name)
		if e.Mode.IsDir() {
			if err := co.dst.MkdirAll(p, 0o755); err != nil {
				return errIO("checkout: mkdir "+p, err)
			}
			co.stats.Dirs++
			if err := co.tree(e.Hash, p); err != nil {
				return err
			}
			continue
		}
		perm, err := filePermFromMode(e.Mode)
		if err != nil {
			return errcat.Errorf(twig.ErrUnsupportedFileMode, "checkout %s: %s", p, err)
		}
		if err := co.file(p, e.Hash, perm); err != nil {
			return err
		}
	}
	return nil
}

func (co *checkout) file(p string, h object.Hash, perm os.FileMode) error {
	if err := co.ctx.Err(); err != nil {
		return errcat.Errorf(twig.ErrCancelled, "checkout: %s", err)
	}
	data, err := object.ReadBlob(co.store, h)
	if err != nil {
		return recategorise("checkout "+p, err)
	}
	f, err := co.dst.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errIO("checkout: create "+p, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errIO("checkout: write "+p, err)
	}
	if err := f.Close(); err != nil {
		return errIO("checkout: close "+p, err)
	}
	co.stats.Files++
	return nil
}

func checkEntryName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return errcat.Errorf(twig.ErrCorrupt, "invalid entry name %q", name)
	case strings.EqualFold(name, GitDirName):
		return errcat.Errorf(twig.ErrCorrupt, "refusing to check out %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return errcat.Errorf(twig.ErrCorrupt, "invalid entry name %q", name)
	}
	return nil
}
