package repo

import (
	"fmt"
	"sync"
	"testing"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig/pkg/object"
)

func TestUpdateRefCAS_ConcurrentSingleWinner(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	base := object.Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if err := r.UpdateRef("refs/heads/main", base); err != nil {
		t.Fatalf("UpdateRef(base): %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)

	successCh := make(chan object.Hash, workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			next := object.Hash(fmt.Sprintf("%040x", i+1))
			if err := r.UpdateRefCAS("refs/heads/main", next, base); err != nil {
				errCh <- err
				return
			}
			successCh <- next
		}()
	}

	wg.Wait()
	close(successCh)
	close(errCh)

	var winner object.Hash
	successes := 0
	for h := range successCh {
		successes++
		winner = h
	}
	if successes != 1 {
		t.Fatalf("successful CAS updates = %d, want 1", successes)
	}

	casMismatches := 0
	for err := range errCh {
		if errcat.Category(err) == ErrRefCASMismatch {
			casMismatches++
			continue
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if casMismatches != workers-1 {
		t.Fatalf("CAS mismatches = %d, want %d", casMismatches, workers-1)
	}

	got, err := r.ResolveRef("refs/heads/main")
	if err != nil {
		t.Fatalf("ResolveRef(main): %v", err)
	}
	if got != winner {
		t.Fatalf("refs/heads/main = %s, want winner %s", got, winner)
	}
}

func TestUpdateRefCAS_ExpectAbsent(t *testing.T) {
	r := newMemRepo(t)
	h := object.Hash("dddddddddddddddddddddddddddddddddddddddd")

	if err := r.UpdateRefCAS("refs/heads/topic", h, ""); err != nil {
		t.Fatalf("create with empty expected hash: %v", err)
	}
	err := r.UpdateRefCAS("refs/heads/topic", h, "")
	if errcat.Category(err) != ErrRefCASMismatch {
		t.Fatalf("second create: err = %v, want CAS mismatch", err)
	}
}
