package repo

import (
	"os"
	"path/filepath"

	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/odvcencio/twig/pkg/object"
)

// DefaultBranch is the branch HEAD points at in a new repository.
const DefaultBranch = "refs/heads/main"

// Init creates a new repository at path. It creates the .git/ directory
// structure: HEAD, objects/, refs/heads/ and refs/tags/. Returns an error if
// a .git/ directory already exists.
func Init(path string) (*Repo, error) {
	return InitWithOptions(path, object.StoreOptions{})
}

// InitWithOptions is Init with explicit object store options.
func InitWithOptions(path string, opts object.StoreOptions) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errUsage("init: abs path: %s", err)
	}
	r, err := InitFS(osfs.New(abs), opts)
	if err != nil {
		return nil, err
	}
	r.RootDir = abs
	return r, nil
}

// InitFS creates a new repository in the working tree wt.
func InitFS(wt billy.Filesystem, opts object.StoreOptions) (*Repo, error) {
	if exists(wt, GitDirName) {
		return nil, errUsage("init: repository already exists at %s", wt.Join(wt.Root(), GitDirName))
	}
	if err := wt.MkdirAll(GitDirName, 0o755); err != nil {
		return nil, errIO("init: mkdir "+GitDirName, err)
	}
	gitDir, err := wt.Chroot(GitDirName)
	if err != nil {
		return nil, errIO("init: chroot "+GitDirName, err)
	}

	for _, d := range []string{"objects", "refs/heads", "refs/tags"} {
		if err := gitDir.MkdirAll(d, 0o755); err != nil {
			return nil, errIO("init: mkdir "+d, err)
		}
	}
	if err := writeFileAtomic(gitDir, "HEAD", []byte("ref: "+DefaultBranch+"\n")); err != nil {
		return nil, errIO("init: write HEAD", err)
	}

	return newRepo(wt, gitDir, opts), nil
}

// Open searches upward from path for a .git/ directory and opens the
// repository. Returns an error if no .git/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errUsage("open: abs path: %s", err)
	}

	cur := abs
	for {
		info, err := os.Stat(filepath.Join(cur, GitDirName))
		if err == nil && info.IsDir() {
			r, err := OpenFS(osfs.New(cur), object.StoreOptions{})
			if err != nil {
				return nil, err
			}
			r.RootDir = cur
			return r, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, errUsage("open: not a twig repository (or any parent up to /): %s", abs)
		}
		cur = parent
	}
}

// OpenFS opens the repository whose .git/ directory is at the root of wt.
func OpenFS(wt billy.Filesystem, opts object.StoreOptions) (*Repo, error) {
	if !isDir(wt, GitDirName) {
		return nil, errUsage("open: no %s directory in %s", GitDirName, wt.Root())
	}
	gitDir, err := wt.Chroot(GitDirName)
	if err != nil {
		return nil, errIO("open: chroot "+GitDirName, err)
	}
	if !exists(gitDir, "HEAD") {
		return nil, errUsage("open: %s/HEAD is missing", GitDirName)
	}
	return newRepo(wt, gitDir, opts), nil
}
