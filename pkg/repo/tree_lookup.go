package repo

import (
	"strings"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

// TreeEntryAtPath walks relPath ("dir/sub/file", slash separated) down from
// treeHash. The final component may name a file or a directory. found is
// false when a component is missing or a non-final one is not a directory.
func (r *Repo) TreeEntryAtPath(treeHash object.Hash, relPath string) (object.TreeEntry, bool, error) {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return object.TreeEntry{Mode: object.TreeModeDir, Hash: treeHash}, true, nil
	}
	parts := strings.Split(relPath, "/")
	current := treeHash

	for i, part := range parts {
		entries, err := object.ReadTree(r.Store, current)
		if err != nil {
			return object.TreeEntry{}, false, recategorise("lookup "+relPath, err)
		}

		var (
			entry object.TreeEntry
			found bool
		)
		for _, te := range entries {
			if te.Name == part {
				entry = te
				found = true
				break
			}
		}
		if !found {
			return object.TreeEntry{}, false, nil
		}
		if i == len(parts)-1 {
			return entry, true, nil
		}
		if !entry.Mode.IsDir() {
			return object.TreeEntry{}, false, nil
		}
		current = entry.Hash
	}
	return object.TreeEntry{}, false, nil
}

// ResolvePath resolves "<rev>:<path>": rev is an object id or ref name
// naming a commit or tree, which is searched for path. An empty path names
// the root tree.
func (r *Repo) ResolvePath(rev, relPath string) (object.Hash, error) {
	root := object.Hash(rev)
	if root.Validate() != nil {
		h, err := r.ResolveRef(rev)
		if err != nil {
			return "", err
		}
		root = h
	}
	objType, data, err := r.Store.Read(root)
	if err != nil {
		return "", recategorise("resolve "+rev, err)
	}
	if objType == object.TypeCommit {
		c, err := object.ParseCommit(data)
		if err != nil {
			return "", recategorise("resolve "+rev, err)
		}
		root = c.TreeHash
	}

	entry, ok, err := r.TreeEntryAtPath(root, relPath)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errcat.Errorf(twig.ErrObjectNotFound, "path %q does not exist in %s", relPath, rev)
	}
	return entry.Hash, nil
}
