package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLsRemoteCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ls-remote [--format json] <url|remote>",
		Short: "List the refs a remote advertises",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := parseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := g.remoteConfig()
			if err != nil {
				return err
			}
			source, err := resolveRemoteArg(args[0], cfg)
			if err != nil {
				return err
			}
			client, err := newRemoteClient(source, cfg, nil)
			if err != nil {
				return err
			}
			refs, err := client.LsRefs(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outFmt == formatJSON {
				return writeJSON(out, &lsRemoteResult{URL: client.Endpoint().URL, Refs: refs})
			}
			for _, ref := range refs {
				if ref.SymrefTarget != "" {
					fmt.Fprintf(out, "ref: %s\t%s\n", ref.SymrefTarget, ref.Name)
				}
				fmt.Fprintf(out, "%s\t%s\n", ref.Hash, ref.Name)
				if ref.Peeled != "" {
					fmt.Fprintf(out, "%s\t%s^{}\n", ref.Peeled, ref.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
