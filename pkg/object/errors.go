package object

import (
	"fmt"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
)

func errInvalidHash(h Hash, why string) error {
	return errcat.Errorf(twig.ErrUsage, "invalid object id %q: %s", string(h), why)
}

func errNotFound(h Hash) error {
	return errcat.Errorf(twig.ErrObjectNotFound, "object %s not found", h)
}

func errCorrupt(format string, args ...interface{}) error {
	return errcat.Errorf(twig.ErrCorrupt, format, args...)
}

func errIO(op string, err error) error {
	return errcat.Errorf(twig.ErrIO, "%s: %s", op, err)
}

// withContext prefixes a categorised error's message, keeping its category.
// Uncategorised errors are reported as corrupt data.
func withContext(err error, format string, args ...interface{}) error {
	prefix := fmt.Sprintf(format, args...)
	category := errcat.Category(err)
	if _, ok := category.(twig.ErrorCategory); !ok {
		category = twig.ErrCorrupt
	}
	return errcat.Errorf(category, "%s: %s", prefix, err)
}

func errUnsupportedKind(offset int, kind EntryKind) error {
	return errcat.Errorf(twig.ErrUnsupportedEntryKind, "pack offset %d: unsupported entry kind %s", offset, kind)
}

func errMissingBase(h Hash) error {
	return errcat.Errorf(twig.ErrMissingBaseObject, "ref-delta base %s not found in pack or store", h)
}

func errCancelled(err error) error {
	return errcat.Errorf(twig.ErrCancelled, "cancelled: %s", err)
}
