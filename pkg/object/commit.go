package object

import (
	"bytes"
	"strings"
)

// MarshalCommit serializes a commit in Git's header format:
//
//	tree <id>
//	parent <id>        (zero or more)
//	author <ident>
//	committer <ident>
//
//	<message>
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	buf.WriteString("tree " + string(c.TreeHash) + "\n")
	for _, p := range c.Parents {
		buf.WriteString("parent " + string(p) + "\n")
	}
	buf.WriteString("author " + c.Author + "\n")
	buf.WriteString("committer " + c.Committer + "\n")
	buf.WriteString("\n")
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// ParseCommit decodes the headers and message of a commit object. Headers
// other than tree, parent, author and committer (gpgsig, encoding, ...) are
// skipped along with their continuation lines.
func ParseCommit(data []byte) (*CommitObj, error) {
	c := &CommitObj{}
	rest := string(data)
	for {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return nil, errCorrupt("commit: unterminated header block")
		}
		line := rest[:nl]
		rest = rest[nl+1:]
		if line == "" {
			break
		}
		if line[0] == ' ' {
			continue
		}
		key, value := line, ""
		if sp := strings.IndexByte(line, ' '); sp >= 0 {
			key, value = line[:sp], line[sp+1:]
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(value)
		case "parent":
			c.Parents = append(c.Parents, Hash(value))
		case "author":
			c.Author = value
		case "committer":
			c.Committer = value
		}
	}
	if err := c.TreeHash.Validate(); err != nil {
		return nil, errCorrupt("commit: bad tree header: %s", err)
	}
	for _, p := range c.Parents {
		if err := p.Validate(); err != nil {
			return nil, errCorrupt("commit: bad parent header: %s", err)
		}
	}
	c.Message = rest
	return c, nil
}
