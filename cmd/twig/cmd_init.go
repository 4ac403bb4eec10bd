package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/repo"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			abs, err := filepath.Abs(g.resolve(path))
			if err != nil {
				return errcat.Errorf(twig.ErrUsage, "resolve path: %s", err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return errcat.Errorf(twig.ErrIO, "create directory: %s", err)
			}

			r, err := repo.InitWithOptions(abs, storeOptions(cfg))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty repository in %s\n", filepath.Join(r.RootDir, repo.GitDirName)+string(filepath.Separator))
			return nil
		},
	}
}
