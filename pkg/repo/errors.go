package repo

import (
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
)

func errUsage(format string, args ...interface{}) error {
	return errcat.Errorf(twig.ErrUsage, format, args...)
}

func errIO(op string, err error) error {
	return errcat.Errorf(twig.ErrIO, "%s: %s", op, err)
}

// recategorise prefixes err with op. Uncategorised errors are local I/O
// failures.
func recategorise(op string, err error) error {
	category := errcat.Category(err)
	if _, ok := category.(twig.ErrorCategory); !ok {
		category = twig.ErrIO
	}
	return errcat.Errorf(category, "%s: %s", op, err)
}

func errRefNotFound(name string) error {
	return errcat.Errorf(twig.ErrObjectNotFound, "ref %q not found", name)
}
