package object

// Hash is a 40-character lowercase hex-encoded SHA-1 object id.
type Hash string

// HashSize is the length of a binary object id; HashHexSize its hex form.
const (
	HashSize    = 20
	HashHexSize = 40
)

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeCommit ObjectType = "commit"
	TypeTree   ObjectType = "tree"
	TypeBlob   ObjectType = "blob"
	TypeTag    ObjectType = "tag"
)

// ParseObjectType maps a header kind back to an ObjectType.
func ParseObjectType(s string) (ObjectType, bool) {
	switch ObjectType(s) {
	case TypeCommit, TypeTree, TypeBlob, TypeTag:
		return ObjectType(s), true
	}
	return "", false
}

// TreeMode is the octal mode string of a tree entry.
type TreeMode string

const (
	// Tree mode constants in Git's canonical form.
	TreeModeDir        TreeMode = "40000"
	TreeModeFile       TreeMode = "100644"
	TreeModeExecutable TreeMode = "100755"
	TreeModeSymlink    TreeMode = "120000"
	TreeModeGitlink    TreeMode = "160000"
)

// IsDir reports whether m names a subtree. Some writers zero-pad the
// directory mode, so both spellings are accepted.
func (m TreeMode) IsDir() bool {
	return m == TreeModeDir || m == "040000"
}

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Mode TreeMode
	Name string
	Hash Hash
}

// CommitObj is the parsed form of a commit object.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    string
	Committer string
	Message   string
}
