package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/repo"
)

func newCloneCmd(g *globalFlags) *cobra.Command {
	var remoteName string
	var verbose bool
	var format string

	cmd := &cobra.Command{
		Use:   "clone <url> [directory]",
		Short: "Clone a repository over smart HTTP (protocol v2)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := parseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			source, err := resolveRemoteArg(args[0], cfg)
			if err != nil {
				return err
			}

			var progress, remoteProgress func(string)
			if verbose {
				stderr := cmd.ErrOrStderr()
				progress = func(msg string) { fmt.Fprintln(stderr, msg) }
				remoteProgress = func(msg string) { fmt.Fprintln(stderr, "remote: "+msg) }
			}
			client, err := newRemoteClient(source, cfg, remoteProgress)
			if err != nil {
				return err
			}

			dest := defaultCloneDir(client.Endpoint())
			if len(args) == 2 {
				dest = args[1]
			}
			if strings.TrimSpace(dest) == "" {
				return errcat.Errorf(twig.ErrUsage, "cannot derive a directory name from %q; pass one explicitly", source)
			}
			absDest, err := filepath.Abs(g.resolve(dest))
			if err != nil {
				return errcat.Errorf(twig.ErrUsage, "resolve destination: %s", err)
			}
			if err := ensureEmptyDir(absDest); err != nil {
				return err
			}

			r, err := repo.InitWithOptions(absDest, storeOptions(cfg))
			if err != nil {
				return err
			}
			res, err := repo.Clone(cmd.Context(), client, source, r, repo.CloneOptions{
				RemoteName: remoteName,
				Progress:   progress,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outFmt == formatJSON {
				return writeJSON(out, res)
			}
			if res.Empty {
				fmt.Fprintf(out, "cloned empty repository into %s\n", absDest)
				return nil
			}
			fmt.Fprintf(out, "cloned %s into %s (%d files, HEAD %s)\n", source, absDest, res.Checkout.Files, res.Commit)
			return nil
		},
	}
	cmd.Flags().StringVar(&remoteName, "remote-name", repo.DefaultRemoteName, "name to record the remote under")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print clone and remote progress to stderr")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
