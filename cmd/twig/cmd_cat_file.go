package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

func newCatFileCmd(g *globalFlags) *cobra.Command {
	var pretty, showType, showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file (-p | -t | -s) <object>",
		Short: "Print an object's content, type or size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 0
			for _, set := range []bool{pretty, showType, showSize} {
				if set {
					n++
				}
			}
			if n != 1 {
				return errcat.Errorf(twig.ErrUsage, "cat-file: exactly one of -p, -t or -s is required")
			}

			r, _, err := g.openRepo()
			if err != nil {
				return err
			}
			h, err := resolveObject(r, args[0])
			if err != nil {
				return err
			}
			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, objType)
			case showSize:
				fmt.Fprintln(out, len(data))
			case objType == object.TypeTree:
				entries, err := object.ParseTree(data)
				if err != nil {
					return err
				}
				printTree(out, entries, false)
			default:
				_, err = out.Write(data)
				if err != nil {
					return errcat.Errorf(twig.ErrIO, "write: %s", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "pretty-print the object's content")
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "show the object's type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "show the object's size")
	return cmd
}

// printTree writes entries in ls-tree format: "<mode> <type> <id>\t<name>",
// with directory modes padded to six digits.
func printTree(out io.Writer, entries []object.TreeEntry, nameOnly bool) {
	for _, e := range entries {
		if nameOnly {
			fmt.Fprintln(out, e.Name)
			continue
		}
		mode := string(e.Mode)
		if len(mode) < 6 {
			mode = strings.Repeat("0", 6-len(mode)) + mode
		}
		fmt.Fprintf(out, "%s %s %s\t%s\n", mode, entryType(e.Mode), e.Hash, e.Name)
	}
}

func entryType(mode object.TreeMode) string {
	switch {
	case mode.IsDir():
		return string(object.TypeTree)
	case mode == object.TreeModeGitlink:
		return string(object.TypeCommit)
	default:
		return string(object.TypeBlob)
	}
}
