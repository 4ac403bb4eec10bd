package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

func newHashObjectCmd(g *globalFlags) *cobra.Command {
	var write, stdin bool

	cmd := &cobra.Command{
		Use:   "hash-object [-w] (--stdin | <file>)",
		Short: "Compute a blob id, optionally storing the blob",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			switch {
			case stdin && len(args) == 0:
				data, err = io.ReadAll(cmd.InOrStdin())
			case !stdin && len(args) == 1:
				data, err = os.ReadFile(g.resolve(args[0]))
			default:
				return errcat.Errorf(twig.ErrUsage, "hash-object: give either a file or --stdin")
			}
			if err != nil {
				return errcat.Errorf(twig.ErrIO, "hash-object: %s", err)
			}

			h := object.HashObject(object.TypeBlob, data)
			if write {
				r, _, err := g.openRepo()
				if err != nil {
					return err
				}
				if h, err = r.Store.Write(object.TypeBlob, data); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the blob into the object store")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read the content from stdin")
	return cmd
}
