package remote

import (
	"bytes"
	"io"
	"strings"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/pktline"
)

const (
	// ProtocolVersion is the value sent in the Git-Protocol header.
	ProtocolVersion = "version=2"

	uploadPackService  = "git-upload-pack"
	contentTypeRequest = "application/x-git-upload-pack-request"
	contentTypeResult  = "application/x-git-upload-pack-result"

	headerProtocol = "Git-Protocol"
)

// Ref is one line of an ls-refs response.
type Ref struct {
	Name string      `refmt:"name"`
	Hash object.Hash `refmt:"hash"`
	// SymrefTarget is set when the ref is symbolic, e.g. HEAD -> refs/heads/main.
	SymrefTarget string `refmt:"symrefTarget,omitempty"`
	// Peeled is the object an annotated tag points at, when advertised.
	Peeled object.Hash `refmt:"peeled,omitempty"`
}

func encodeLsRefsRequest() []byte {
	var buf bytes.Buffer
	enc := pktline.NewEncoder(&buf)
	_ = enc.EncodeString("command=ls-refs\n")
	_ = enc.Delim()
	_ = enc.EncodeString("symrefs\n")
	_ = enc.Flush()
	return buf.Bytes()
}

func encodeFetchRequest(wants []object.Hash) []byte {
	var buf bytes.Buffer
	enc := pktline.NewEncoder(&buf)
	_ = enc.EncodeString("command=fetch\n")
	_ = enc.Delim()
	for _, h := range wants {
		_ = enc.EncodeString("want " + string(h) + "\n")
	}
	_ = enc.EncodeString("no-progress\n")
	_ = enc.EncodeString("done\n")
	_ = enc.Flush()
	return buf.Bytes()
}

func errProtocol(format string, args ...interface{}) error {
	return errcat.Errorf(twig.ErrTransport, format, args...)
}

// parseRefLine parses "<id> <refname>[ <attr>]..." where attributes are
// symref-target:<name> or peeled:<id>.
func parseRefLine(line string) (Ref, error) {
	fields := strings.Split(line, " ")
	if len(fields) < 2 || fields[1] == "" {
		return Ref{}, errProtocol("malformed ls-refs line %q", line)
	}
	ref := Ref{Name: fields[1], Hash: object.Hash(fields[0])}
	if err := ref.Hash.Validate(); err != nil {
		return Ref{}, errProtocol("ls-refs line %q: %s", line, err)
	}
	for _, attr := range fields[2:] {
		switch {
		case strings.HasPrefix(attr, "symref-target:"):
			ref.SymrefTarget = strings.TrimPrefix(attr, "symref-target:")
		case strings.HasPrefix(attr, "peeled:"):
			ref.Peeled = object.Hash(strings.TrimPrefix(attr, "peeled:"))
			if err := ref.Peeled.Validate(); err != nil {
				return Ref{}, errProtocol("ls-refs line %q: %s", line, err)
			}
		}
	}
	return ref, nil
}

// readRefs reads ls-refs response lines up to the terminating flush.
func readRefs(r io.Reader) ([]Ref, error) {
	s := pktline.NewScanner(r)
	var refs []Ref
	for s.Scan() {
		if s.Kind() != pktline.Data {
			return refs, nil
		}
		if msg, ok := errLine(s.Bytes()); ok {
			return nil, errProtocol("remote error: %s", msg)
		}
		ref, err := parseRefLine(s.Text())
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return nil, errProtocol("ls-refs response ended without flush")
}

// readFetchResponse skips the sections before the "packfile" header and
// returns the concatenated channel-1 bytes that follow it.
func readFetchResponse(r io.Reader, onProgress func(string)) ([]byte, error) {
	s := pktline.NewScanner(r)
	for {
		if !s.Scan() {
			if err := s.Err(); err != nil {
				return nil, err
			}
			return nil, errProtocol("fetch response ended before packfile section")
		}
		if s.Kind() != pktline.Data {
			continue
		}
		if msg, ok := errLine(s.Bytes()); ok {
			return nil, errProtocol("remote error: %s", msg)
		}
		if s.Text() == "packfile" {
			break
		}
	}

	var pack bytes.Buffer
	if _, err := io.Copy(&pack, NewSidebandDataReader(s, onProgress)); err != nil {
		return nil, err
	}
	return pack.Bytes(), nil
}
