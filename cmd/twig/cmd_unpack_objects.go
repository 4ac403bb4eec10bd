package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

func newUnpackObjectsCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "unpack-objects < pack",
		Short: "Unpack a pack stream from stdin into the object store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := parseFormat(format)
			if err != nil {
				return err
			}
			r, _, err := g.openRepo()
			if err != nil {
				return err
			}
			pack, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return errcat.Errorf(twig.ErrIO, "read pack: %s", err)
			}
			stats, err := object.Unpack(cmd.Context(), r.Store, pack)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outFmt == formatJSON {
				res := unpackStatsResult(stats)
				return writeJSON(out, &res)
			}
			fmt.Fprintf(out, "Unpacked %d objects (%d whole, %d deltas)\n", stats.Entries, stats.Objects, stats.Deltas)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
