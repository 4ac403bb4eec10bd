package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/pktline"
	"github.com/odvcencio/twig/pkg/remote"
)

// Request records one request the fake server received.
type Request struct {
	Command string
	Args    []string
	Header  http.Header
}

// Server is an in-process upload-pack endpoint speaking protocol v2. The
// repository URL is Server.URL + "/repo.git".
type Server struct {
	*httptest.Server

	Refs []remote.Ref
	Pack []byte

	// FailFirst answers the first n requests with 503.
	FailFirst int
	// ContentEncoding compresses responses with "gzip" or "zstd".
	ContentEncoding string
	// Progress lines are sent on sideband channel 2 before the pack.
	Progress []string
	// SidebandError, if set, is sent on channel 3 instead of the pack.
	SidebandError string

	mu       sync.Mutex
	requests []Request
	failed   int
}

// NewServer starts a fake server; it is closed when the test ends.
func NewServer(t testing.TB, refs []remote.Ref, pack []byte) *Server {
	t.Helper()
	s := &Server{Refs: refs, Pack: pack}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

// NewRepoServer serves a fixture repository with the given pack options.
func NewRepoServer(t testing.TB, repo *Repo, opts PackOptions) *Server {
	t.Helper()
	return NewServer(t, repo.Refs(), repo.Pack(t, opts))
}

// RepoURL is the clone URL of the served repository.
func (s *Server) RepoURL() string {
	return s.URL + "/repo.git"
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/repo.git/git-upload-pack" {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Git-Protocol") != "version=2" {
		http.Error(w, "protocol v2 required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.failed < s.FailFirst {
		s.failed++
		s.mu.Unlock()
		http.Error(w, "try again", http.StatusServiceUnavailable)
		return
	}
	s.mu.Unlock()

	req, err := parseCommand(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Header = r.Header.Clone()
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	var body bytes.Buffer
	switch req.Command {
	case "ls-refs":
		s.writeRefs(&body)
	case "fetch":
		s.writeFetch(&body)
	default:
		http.Error(w, "unknown command "+req.Command, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	out := body.Bytes()
	switch s.ContentEncoding {
	case "gzip":
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		_, _ = zw.Write(out)
		_ = zw.Close()
		out = zbuf.Bytes()
		w.Header().Set("Content-Encoding", "gzip")
	case "zstd":
		enc, _ := zstd.NewWriter(nil)
		out = enc.EncodeAll(out, nil)
		enc.Close()
		w.Header().Set("Content-Encoding", "zstd")
	}
	_, _ = w.Write(out)
}

func parseCommand(r io.Reader) (Request, error) {
	var req Request
	sc := pktline.NewScanner(r)
	for sc.Scan() {
		if sc.Kind() == pktline.Flush {
			break
		}
		if sc.Kind() != pktline.Data {
			continue
		}
		line := sc.Text()
		if cmd, ok := strings.CutPrefix(line, "command="); ok && req.Command == "" {
			req.Command = cmd
			continue
		}
		req.Args = append(req.Args, line)
	}
	return req, sc.Err()
}

func (s *Server) writeRefs(w io.Writer) {
	enc := pktline.NewEncoder(w)
	for _, ref := range s.Refs {
		line := string(ref.Hash) + " " + ref.Name
		if ref.SymrefTarget != "" {
			line += " symref-target:" + ref.SymrefTarget
		}
		if ref.Peeled != "" {
			line += " peeled:" + string(ref.Peeled)
		}
		_ = enc.EncodeString(line + "\n")
	}
	_ = enc.Flush()
}

func (s *Server) writeFetch(w io.Writer) {
	enc := pktline.NewEncoder(w)
	_ = enc.EncodeString("packfile\n")
	sw := remote.NewSidebandWriter(w)
	for _, p := range s.Progress {
		_ = sw.WriteProgress(p + "\n")
	}
	if s.SidebandError != "" {
		_ = sw.WriteError(s.SidebandError)
	} else {
		_ = sw.WriteData(s.Pack)
	}
	_ = enc.Flush()
}

// Wants returns the object ids requested by the last fetch.
func (s *Server) Wants() []object.Hash {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Command != "fetch" {
			continue
		}
		var out []object.Hash
		for _, arg := range reqs[i].Args {
			if h, ok := strings.CutPrefix(arg, "want "); ok {
				out = append(out, object.Hash(h))
			}
		}
		return out
	}
	return nil
}
