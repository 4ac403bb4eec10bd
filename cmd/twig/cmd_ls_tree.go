package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/object"
)

func newLsTreeCmd(g *globalFlags) *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "ls-tree [--name-only] <tree-ish>",
		Short: "List the entries of a tree, or of a commit's tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if objType == object.TypeCommit {
				c, err := object.ParseCommit(data)
				if err != nil {
					return err
				}
				h = c.TreeHash
			}
			entries, err := object.ReadTree(r.Store, h)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), entries, nameOnly)
			return nil
		},
	}
	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list only entry names")
	return cmd
}
