package object

import (
	"bytes"
	"sort"
	"strings"
)

// CheckConnected walks every object reachable from roots by following
// commit, tree and tag references and fails with ObjectNotFound on the first
// one missing from r. Gitlink entries point into other repositories and are
// not followed. It returns the number of objects visited.
func CheckConnected(r ObjectReader, roots []Hash) (int, error) {
	roots = uniqueNormalizedHashes(roots)
	seen := make(map[Hash]struct{}, len(roots))
	stack := append([]Hash(nil), roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		objType, data, err := r.Read(h)
		if err != nil {
			return len(seen), err
		}
		refs, err := referencedHashes(objType, data)
		if err != nil {
			return len(seen), withContext(err, "connectivity %s %s", objType, h)
		}
		stack = append(stack, refs...)
	}
	return len(seen), nil
}

func referencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeTag:
		target, err := parseTagTarget(data)
		if err != nil {
			return nil, err
		}
		return []Hash{target}, nil
	case TypeCommit:
		commit, err := ParseCommit(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, 1+len(commit.Parents))
		refs = append(refs, commit.TreeHash)
		return append(refs, commit.Parents...), nil
	case TypeTree:
		entries, err := ParseTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(entries))
		for _, e := range entries {
			if e.Mode == TreeModeGitlink {
				continue
			}
			refs = append(refs, e.Hash)
		}
		return refs, nil
	}
	return nil, errCorrupt("unsupported object type %q", objType)
}

// parseTagTarget returns the id named by an annotated tag's "object" header.
func parseTagTarget(data []byte) (Hash, error) {
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			break
		}
		if target, ok := bytes.CutPrefix(line, []byte("object ")); ok {
			h := Hash(target)
			if err := h.Validate(); err != nil {
				return "", errCorrupt("tag: bad object header: %s", err)
			}
			return h, nil
		}
	}
	return "", errCorrupt("tag: missing object header")
}

func uniqueNormalizedHashes(in []Hash) []Hash {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
