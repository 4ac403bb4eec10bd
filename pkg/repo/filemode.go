package repo

import (
	"os"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

func modeFromFileInfo(info os.FileInfo) object.TreeMode {
	if info.Mode()&0o111 != 0 {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

// filePermFromMode maps a blob entry's mode to the permission bits it is
// checked out with. Modes other than regular and executable files cannot be
// materialised.
func filePermFromMode(mode object.TreeMode) (os.FileMode, error) {
	switch mode {
	case object.TreeModeFile:
		return 0o644, nil
	case object.TreeModeExecutable:
		return 0o755, nil
	default:
		return 0, errcat.Errorf(twig.ErrUnsupportedFileMode, "unsupported file mode %s", mode)
	}
}
