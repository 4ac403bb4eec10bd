package repo

import (
	"os"
	"path"
	"sort"

	"github.com/odvcencio/twig/pkg/object"
)

// WriteTree snapshots the working tree as blobs and nested trees, skipping
// .git/ and empty directories, and returns the root tree id. Symlinks are
// stored as their target path.
func (r *Repo) WriteTree() (object.Hash, error) {
	h, _, err := r.writeTreeDir("")
	return h, err
}

// writeTreeDir returns the tree id of dir and the number of entries in it.
func (r *Repo) writeTreeDir(dir string) (object.Hash, int, error) {
	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	infos, err := r.Worktree.ReadDir(readDir)
	if err != nil {
		return "", 0, errIO("write tree: read dir "+readDir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var entries []object.TreeEntry
	for _, info := range infos {
		name := info.Name()
		if dir == "" && name == GitDirName {
			continue
		}
		p := path.Join(dir, name)

		switch {
		case info.IsDir():
			sub, n, err := r.writeTreeDir(p)
			if err != nil {
				return "", 0, err
			}
			if n == 0 {
				continue
			}
			entries = append(entries, object.TreeEntry{Mode: object.TreeModeDir, Name: name, Hash: sub})

		case info.Mode()&os.ModeSymlink != 0:
			target, err := r.Worktree.Readlink(p)
			if err != nil {
				return "", 0, errIO("write tree: readlink "+p, err)
			}
			h, err := r.Store.Write(object.TypeBlob, []byte(target))
			if err != nil {
				return "", 0, recategorise("write tree "+p, err)
			}
			entries = append(entries, object.TreeEntry{Mode: object.TreeModeSymlink, Name: name, Hash: h})

		case info.Mode().IsRegular():
			data, err := readFile(r.Worktree, p)
			if err != nil {
				return "", 0, errIO("write tree: read "+p, err)
			}
			h, err := r.Store.Write(object.TypeBlob, data)
			if err != nil {
				return "", 0, recategorise("write tree "+p, err)
			}
			entries = append(entries, object.TreeEntry{Mode: modeFromFileInfo(info), Name: name, Hash: h})
		}
	}

	h, err := object.WriteTree(r.Store, entries)
	if err != nil {
		return "", 0, recategorise("write tree "+readDir, err)
	}
	return h, len(entries), nil
}
