package main

import (
	"io"
	"strings"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	"github.com/polydawn/refmt/obj/atlas"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/remote"
	"github.com/odvcencio/twig/pkg/repo"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
)

func parseFormat(s string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", formatText:
		return formatText, nil
	case formatJSON:
		return formatJSON, nil
	default:
		return "", errcat.Errorf(twig.ErrUsage, "unknown --format %q (want text or json)", s)
	}
}

// lsRemoteResult is the --format json document of ls-remote.
type lsRemoteResult struct {
	URL  string       `refmt:"url"`
	Refs []remote.Ref `refmt:"refs"`
}

// unpackResult is the --format json document of unpack-objects.
type unpackResult struct {
	Entries int `refmt:"entries"`
	Objects int `refmt:"objects"`
	Deltas  int `refmt:"deltas"`
}

var outputAtlas = atlas.MustBuild(
	atlas.BuildEntry(remote.Ref{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(repo.CloneResult{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(repo.UnpackSummary{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(repo.CheckoutStats{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(lsRemoteResult{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(unpackResult{}).StructMap().Autogenerate().Complete(),
)

func writeJSON(w io.Writer, v interface{}) error {
	marshaller := refmt.NewMarshallerAtlased(json.EncodeOptions{Line: []byte{'\n'}, Indent: []byte{'\t'}}, w, outputAtlas)
	if err := marshaller.Marshal(v); err != nil {
		return errcat.Errorf(twig.ErrIO, "write json: %s", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func unpackStatsResult(s *object.UnpackStats) unpackResult {
	return unpackResult{Entries: s.Entries, Objects: s.Objects, Deltas: s.Deltas}
}
