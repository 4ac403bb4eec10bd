package object

import (
	"bytes"
	"sort"
)

// ParseTree decodes a tree object's content: a sequence of
// "<mode> <name>\0<20-byte id>" records with no length prefix.
func ParseTree(data []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for pos := 0; pos < len(data); {
		nul := bytes.IndexByte(data[pos:], 0)
		if nul < 0 {
			return nil, errCorrupt("tree entry at offset %d: missing NUL terminator", pos)
		}
		header := data[pos : pos+nul]
		sp := bytes.IndexByte(header, ' ')
		if sp <= 0 {
			return nil, errCorrupt("tree entry at offset %d: invalid header %q", pos, header)
		}
		idStart := pos + nul + 1
		if idStart+HashSize > len(data) {
			return nil, errCorrupt("tree entry at offset %d: truncated object id", pos)
		}
		entries = append(entries, TreeEntry{
			Mode: TreeMode(header[:sp]),
			Name: string(header[sp+1:]),
			Hash: HashFromBytes(data[idStart : idStart+HashSize]),
		})
		pos = idStart + HashSize
	}
	return entries, nil
}

// MarshalTree serializes entries in Git's canonical order, where a
// directory sorts as if its name had a trailing slash.
func MarshalTree(entries []TreeEntry) ([]byte, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return treeSortKey(sorted[i]) < treeSortKey(sorted[j])
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		raw, err := e.Hash.Bytes()
		if err != nil {
			return nil, err
		}
		buf.WriteString(string(e.Mode))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func treeSortKey(e TreeEntry) string {
	if e.Mode.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}
