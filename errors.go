// Package twig holds the vocabulary shared by every twig package: the error
// categories raised by the object store, pack parser, transport and checkout,
// and the process exit codes the CLI maps them to.
//
// Errors are built with github.com/warpfork/go-errcat; use errcat.Category(err)
// to switch on them.
package twig

// ErrorCategory is the category attached to every error twig raises.
type ErrorCategory string

// ExitCode is the process exit status the CLI uses for an error category.
type ExitCode int

const (
	ExitSuccess = ExitCode(0)

	ExitUsage, ErrUsage                                 = ExitCode(1), ErrorCategory("twig-usage-error")              // Invalid CLI input or configuration.
	ExitObjectNotFound, ErrObjectNotFound               = ExitCode(2), ErrorCategory("twig-object-not-found")         // No object stored under the requested id.
	ExitCorrupt, ErrCorrupt                             = ExitCode(3), ErrorCategory("twig-corrupt")                  // Inflate failure, bad header, truncated or inconsistent data.
	ExitUnsupportedEntryKind, ErrUnsupportedEntryKind   = ExitCode(4), ErrorCategory("twig-unsupported-entry-kind")   // ofs-delta or unrecognised pack entry kind.
	ExitUnsupportedFileMode, ErrUnsupportedFileMode     = ExitCode(5), ErrorCategory("twig-unsupported-file-mode")    // Checkout met a mode other than file, executable or directory.
	ExitMissingBaseObject, ErrMissingBaseObject         = ExitCode(6), ErrorCategory("twig-missing-base-object")      // A ref-delta base never became available.
	ExitTransport, ErrTransport                         = ExitCode(7), ErrorCategory("twig-transport-error")          // HTTP failure or malformed pkt-line framing.
	ExitCancelled, ErrCancelled                         = ExitCode(8), ErrorCategory("twig-cancelled")                // The context was cancelled or its deadline passed.
	ExitIO, ErrIO                                       = ExitCode(9), ErrorCategory("twig-io-error")                 // Local filesystem failure.
	ExitUnknown                                         = ExitCode(10)
)

// ExitCodeFor returns the exit code for an error category. Unknown
// categories map to ExitUnknown.
func ExitCodeFor(category interface{}) ExitCode {
	switch category {
	case nil:
		return ExitSuccess
	case ErrUsage:
		return ExitUsage
	case ErrObjectNotFound:
		return ExitObjectNotFound
	case ErrCorrupt:
		return ExitCorrupt
	case ErrUnsupportedEntryKind:
		return ExitUnsupportedEntryKind
	case ErrUnsupportedFileMode:
		return ExitUnsupportedFileMode
	case ErrMissingBaseObject:
		return ExitMissingBaseObject
	case ErrTransport:
		return ExitTransport
	case ErrCancelled:
		return ExitCancelled
	case ErrIO:
		return ExitIO
	default:
		return ExitUnknown
	}
}
