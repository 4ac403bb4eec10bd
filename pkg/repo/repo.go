// Package repo manages twig repositories: a working tree with a .git
// metadata directory holding HEAD, refs, twig.toml and the loose object
// store. Every file operation goes through billy filesystems so a repository
// can live on disk or in memory.
package repo

import (
	"io"
	"os"
	"path"

	"gopkg.in/src-d/go-billy.v4"

	"github.com/odvcencio/twig/pkg/object"
)

// GitDirName is the metadata directory inside a working tree.
const GitDirName = ".git"

// Repo represents an opened twig repository.
type Repo struct {
	RootDir  string           // working tree root on disk; empty for in-memory repositories
	Worktree billy.Filesystem // working tree
	GitDir   billy.Filesystem // .git/ directory
	Store    *object.Store    // content-addressed object store under .git/objects
}

func newRepo(wt, gitDir billy.Filesystem, opts object.StoreOptions) *Repo {
	return &Repo{
		Worktree: wt,
		GitDir:   gitDir,
		Store:    object.NewStoreWithOptions(gitDir, opts),
	}
}

// SetStoreOptions replaces the object store handle, e.g. after the
// repository config changed the compression level.
func (r *Repo) SetStoreOptions(opts object.StoreOptions) {
	r.Store = object.NewStoreWithOptions(r.GitDir, opts)
}

// readFile reads a whole file from fs.
func readFile(fs billy.Basic, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeFileAtomic writes data to a temp file next to name and renames it
// into place.
func writeFileAtomic(fs billy.Filesystem, name string, data []byte) error {
	dir := path.Dir(name)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := fs.TempFile(dir, ".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return err
	}
	if err := fs.Rename(tmpName, name); err != nil {
		fs.Remove(tmpName)
		return err
	}
	return nil
}

func isDir(fs billy.Basic, name string) bool {
	info, err := fs.Stat(name)
	return err == nil && info.IsDir()
}

func exists(fs billy.Basic, name string) bool {
	_, err := fs.Stat(name)
	return err == nil || !os.IsNotExist(err)
}
