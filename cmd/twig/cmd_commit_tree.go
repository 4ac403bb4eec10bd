package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/config"
	"github.com/odvcencio/twig/pkg/object"
)

// now is replaced in tests.
var now = time.Now

func newCommitTreeCmd(g *globalFlags) *cobra.Command {
	var parents []string
	var message string

	cmd := &cobra.Command{
		Use:   "commit-tree <tree> [-p <parent>]... -m <message>",
		Short: "Create a commit object for a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return errcat.Errorf(twig.ErrUsage, "commit-tree: a message is required (-m)")
			}
			r, cfg, err := g.openRepo()
			if err != nil {
				return err
			}

			tree, err := resolveObject(r, args[0])
			if err != nil {
				return err
			}
			if _, err := object.ReadTree(r.Store, tree); err != nil {
				return err
			}
			c := &object.CommitObj{TreeHash: tree}
			for _, p := range parents {
				h, err := resolveObject(r, p)
				if err != nil {
					return err
				}
				if _, err := object.ReadCommit(r.Store, h); err != nil {
					return err
				}
				c.Parents = append(c.Parents, h)
			}
			sig := signature(cfg.User, now())
			c.Author = sig
			c.Committer = sig
			c.Message = message
			if !strings.HasSuffix(c.Message, "\n") {
				c.Message += "\n"
			}

			h, err := object.WriteCommit(r.Store, c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&parents, "parent", "p", nil, "parent commit (repeatable)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

// signature formats "Name <email> <unix-seconds> <+hhmm>".
func signature(u config.UserConfig, t time.Time) string {
	return fmt.Sprintf("%s <%s> %d %s", u.Name, u.Email, t.Unix(), t.Format("-0700"))
}
