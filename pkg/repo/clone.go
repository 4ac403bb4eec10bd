package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/remote"
)

// DefaultRemoteName is the remote a clone records its URL under.
const DefaultRemoteName = "origin"

// Fetcher is the part of the upload-pack client a clone needs.
type Fetcher interface {
	LsRefs(ctx context.Context) ([]remote.Ref, error)
	FetchPack(ctx context.Context, wants []object.Hash) ([]byte, error)
}

var _ Fetcher = (*remote.Client)(nil)

// CloneOptions configures Clone.
type CloneOptions struct {
	// RemoteName defaults to DefaultRemoteName.
	RemoteName string
	// Progress receives one message per clone phase, if set.
	Progress func(string)
}

// CloneResult summarises a finished clone.
type CloneResult struct {
	URL      string         `refmt:"url"`
	Head     string         `refmt:"head"` // symbolic HEAD target, empty when detached
	Commit   object.Hash    `refmt:"commit"`
	Refs     []remote.Ref   `refmt:"refs"`
	Unpack   UnpackSummary  `refmt:"unpack"`
	Checkout *CheckoutStats `refmt:"checkout"`
	Empty    bool           `refmt:"empty"` // the remote advertised no refs
}

// UnpackSummary reports what the fetched pack contained.
type UnpackSummary struct {
	PackBytes int `refmt:"packBytes"`
	Entries   int `refmt:"entries"`
	Deltas    int `refmt:"deltas"`
	Reachable int `refmt:"reachable"`
}

// Clone fetches every ref the remote advertises into r, points HEAD at the
// remote's HEAD, checks out its tree and records url as the named remote.
//
// The pipeline is: ls-refs, fetch, unpack, connectivity check, ref update,
// checkout. Any failure aborts it; objects already written stay in the store.
func Clone(ctx context.Context, f Fetcher, url string, r *Repo, opts CloneOptions) (*CloneResult, error) {
	if opts.RemoteName == "" {
		opts.RemoteName = DefaultRemoteName
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}
	result := &CloneResult{URL: url}

	progress("Listing refs")
	refs, err := f.LsRefs(ctx)
	if err != nil {
		return nil, err
	}
	result.Refs = refs

	head, headTarget, err := pickHead(refs)
	if err != nil {
		return nil, err
	}
	if head == "" {
		result.Empty = true
		if err := r.SetRemote(opts.RemoteName, url); err != nil {
			return nil, err
		}
		return result, nil
	}
	result.Commit = head
	result.Head = headTarget

	wants := make([]object.Hash, 0, len(refs))
	for _, ref := range refs {
		wants = append(wants, ref.Hash)
	}

	progress(fmt.Sprintf("Fetching %d refs", len(refs)))
	pack, err := f.FetchPack(ctx, wants)
	if err != nil {
		return nil, err
	}
	result.Unpack.PackBytes = len(pack)

	stats, err := object.Unpack(ctx, r.Store, pack)
	if err != nil {
		return nil, err
	}
	result.Unpack.Entries = stats.Entries
	result.Unpack.Deltas = stats.Deltas
	progress(fmt.Sprintf("Unpacked %d objects (%d deltas)", stats.Entries, stats.Deltas))

	reachable, err := object.CheckConnected(r.Store, wants)
	if err != nil {
		return nil, errcat.Errorf(errcat.Category(err), "clone: fetched pack is incomplete: %s", err)
	}
	result.Unpack.Reachable = reachable

	reason := "clone: from " + url
	if err := writeFetchedRefs(r, refs, head, headTarget, reason); err != nil {
		return nil, err
	}
	if headTarget != "" {
		err = r.WriteHead(headTarget)
	} else {
		err = r.WriteHead(string(head))
	}
	if err != nil {
		return nil, err
	}
	if err := r.appendReflog("HEAD", "", head, reason); err != nil {
		return nil, err
	}

	co, err := r.CheckoutCommit(ctx, head)
	if err != nil {
		return nil, err
	}
	result.Checkout = co
	progress(fmt.Sprintf("Checked out %d files", co.Files))

	if err := r.SetRemote(opts.RemoteName, url); err != nil {
		return nil, err
	}
	return result, nil
}

// pickHead returns the commit HEAD should point at and, when HEAD is
// symbolic, its target. Without an advertised HEAD the first branch wins.
// An empty advertisement yields "".
func pickHead(refs []remote.Ref) (object.Hash, string, error) {
	var branch *remote.Ref
	for i := range refs {
		ref := &refs[i]
		if ref.Name == "HEAD" {
			if ref.SymrefTarget != "" {
				if err := ValidateRefName(ref.SymrefTarget); err != nil {
					return "", "", errcat.Errorf(twig.ErrTransport, "remote HEAD: %s", err)
				}
			}
			return ref.Hash, ref.SymrefTarget, nil
		}
		if branch == nil && strings.HasPrefix(ref.Name, "refs/heads/") {
			branch = ref
		}
	}
	if branch != nil {
		return branch.Hash, branch.Name, nil
	}
	return "", "", nil
}

// writeFetchedRefs stores every advertised ref at .git/<name> and logs it
// with reason. A HEAD target the remote did not list is created at the HEAD
// commit.
func writeFetchedRefs(r *Repo, refs []remote.Ref, head object.Hash, headTarget, reason string) error {
	wroteTarget := false
	for _, ref := range refs {
		if ref.Name == "HEAD" {
			continue
		}
		if err := ValidateRefName(ref.Name); err != nil {
			return errcat.Errorf(twig.ErrTransport, "remote advertised %s", err)
		}
		if err := r.UpdateRef(ref.Name, ref.Hash); err != nil {
			return err
		}
		if err := r.appendReflog(ref.Name, "", ref.Hash, reason); err != nil {
			return err
		}
		wroteTarget = wroteTarget || ref.Name == headTarget
	}
	if headTarget != "" && !wroteTarget {
		if err := r.UpdateRef(headTarget, head); err != nil {
			return err
		}
		return r.appendReflog(headTarget, "", head, reason)
	}
	return nil
}
