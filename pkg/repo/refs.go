package repo

import (
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-billy.v4"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

// ErrRefCASMismatch is the category of a compare-and-swap ref update whose
// expected old value did not match.
const ErrRefCASMismatch twig.ErrorCategory = "twig-error-ref-cas-mismatch"

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
	symrefPrefix      = "ref: "
)

// ValidateRefName checks that name is a safe path below .git: it must start
// with "refs/", have no empty, "." or ".." components, and contain no NUL,
// backslash or ".lock" suffix.
func ValidateRefName(name string) error {
	if !strings.HasPrefix(name, "refs/") {
		return errUsage("invalid ref name %q: must start with refs/", name)
	}
	if strings.ContainsAny(name, "\x00\\") || strings.HasSuffix(name, ".lock") {
		return errUsage("invalid ref name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return errUsage("invalid ref name %q", name)
		}
	}
	return nil
}

// Head reads .git/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g., "refs/heads/main"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := readFile(r.GitDir, "HEAD")
	if err != nil {
		return "", errIO("head", err)
	}
	content := strings.TrimRight(string(data), "\n")
	if strings.HasPrefix(content, symrefPrefix) {
		return strings.TrimPrefix(content, symrefPrefix), nil
	}
	return content, nil
}

// WriteHead points HEAD at target: a ref name makes HEAD symbolic, an
// object id detaches it.
func (r *Repo) WriteHead(target string) error {
	var content string
	if strings.HasPrefix(target, "refs/") {
		if err := ValidateRefName(target); err != nil {
			return err
		}
		content = symrefPrefix + target + "\n"
	} else {
		if err := object.Hash(target).Validate(); err != nil {
			return err
		}
		content = target + "\n"
	}
	if err := writeFileAtomic(r.GitDir, "HEAD", []byte(content)); err != nil {
		return errIO("write HEAD", err)
	}
	return nil
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. If name is "HEAD", read HEAD. If HEAD is symbolic, resolve the target ref.
//  2. If name starts with "refs/", read .git/<name>.
//  3. Otherwise, try "refs/heads/<name>" then "refs/tags/<name>".
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		h := object.Hash(head)
		if err := h.Validate(); err != nil {
			return "", errcat.Errorf(twig.ErrCorrupt, "HEAD: %s", err)
		}
		return h, nil
	}

	candidates := []string{name}
	if !strings.HasPrefix(name, "refs/") {
		candidates = []string{"refs/heads/" + name, "refs/tags/" + name}
	}
	for _, refName := range candidates {
		if ValidateRefName(refName) != nil {
			continue
		}
		h, err := readRefHash(r.GitDir, refName)
		if err != nil {
			return "", recategorise("resolve ref "+refName, err)
		}
		if h == "" {
			continue
		}
		if err := h.Validate(); err != nil {
			return "", errcat.Errorf(twig.ErrCorrupt, "ref %s: %s", refName, err)
		}
		return h, nil
	}
	return "", errRefNotFound(name)
}

// UpdateRef writes a hash to the named ref file under .git/. Parent
// directories are created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.UpdateRefCAS(name, h)
}

// UpdateRefCAS writes a hash to the named ref file under .git/ using
// lockfile + rename semantics. If expectedOld is provided, the update only
// succeeds when the current ref hash matches it; the empty hash expects the
// ref to be absent.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return errUsage("update ref %q: expected at most one old hash", name)
	}
	if err := ValidateRefName(name); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}

	if err := r.GitDir.MkdirAll(path.Dir(name), 0o755); err != nil {
		return errIO("update ref "+name+": mkdir", err)
	}

	lockName := name + ".lock"
	lockFile, err := acquireRefLock(r.GitDir, lockName)
	if err != nil {
		return errIO("update ref "+name+": lock", err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = r.GitDir.Remove(lockName)
		}
	}()

	if len(expectedOld) == 1 {
		oldHash, err := readRefHash(r.GitDir, name)
		if err != nil {
			return errIO("update ref "+name+": read old hash", err)
		}
		if oldHash != expectedOld[0] {
			return errcat.Errorf(ErrRefCASMismatch, "update ref %q: expected %s, found %s", name, expectedOld[0], oldHash)
		}
	}

	if _, err := lockFile.Write([]byte(string(h) + "\n")); err != nil {
		return errIO("update ref "+name+": write", err)
	}
	err = lockFile.Close()
	lockFile = nil
	if err != nil {
		return errIO("update ref "+name+": close", err)
	}

	if err := r.GitDir.Rename(lockName, name); err != nil {
		return errIO("update ref "+name+": rename", err)
	}
	cleanupLock = false
	return nil
}

func acquireRefLock(fs billy.Filesystem, lockName string) (billy.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := fs.OpenFile(lockName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, errcat.Errorf(twig.ErrIO, "timeout waiting for lock %q", lockName)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefHash returns the stored hash, or "" when the ref does not exist.
func readRefHash(fs billy.Basic, name string) (object.Hash, error) {
	data, err := readFile(fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

// ListRefs lists references under .git/refs/<prefix>, keyed by full name
// (e.g. "refs/heads/main"). Lock files are skipped.
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	dir := "refs"
	if p := strings.Trim(strings.TrimSpace(prefix), "/"); p != "" {
		dir = path.Join(dir, p)
	}
	refs := make(map[string]object.Hash)
	if err := r.walkRefs(dir, refs); err != nil {
		return nil, errIO("list refs", err)
	}
	return refs, nil
}

func (r *Repo) walkRefs(dir string, out map[string]object.Hash) error {
	infos, err := r.GitDir.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	for _, info := range infos {
		name := path.Join(dir, info.Name())
		if info.IsDir() {
			if err := r.walkRefs(name, out); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(name, ".lock") || strings.HasPrefix(info.Name(), ".tmp-") {
			continue
		}
		h, err := readRefHash(r.GitDir, name)
		if err != nil {
			return err
		}
		out[name] = h
	}
	return nil
}
