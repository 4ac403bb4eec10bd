// Command twig is a minimal Git: object plumbing over a loose object store
// and a smart-HTTP protocol v2 clone.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
)

const version = "twig 0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(int(code))
}

// run executes one command line and returns the process exit code. Errors
// are printed to stderr; their category selects the code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) twig.ExitCode {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return twig.ExitSuccess
	}
	fmt.Fprintln(stderr, "twig:", err)
	return exitCode(err)
}

func exitCode(err error) twig.ExitCode {
	return twig.ExitCodeFor(errcat.Category(err))
}

func usageError(err error) error {
	return errcat.Errorf(twig.ErrUsage, "%s", err)
}

// categoriseArgs makes the argument validators of cmd and its subcommands
// return usage errors.
func categoriseArgs(cmd *cobra.Command) {
	if validate := cmd.Args; validate != nil {
		cmd.Args = func(c *cobra.Command, args []string) error {
			if err := validate(c, args); err != nil {
				return usageError(err)
			}
			return nil
		}
	}
	for _, sub := range cmd.Commands() {
		categoriseArgs(sub)
	}
}

type globalFlags struct {
	configPath string
	workDir    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "twig",
		Short:         "A minimal Git object store and smart-HTTP clone client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return errcat.Errorf(twig.ErrUsage, "unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default $TWIG_CONFIG or $XDG_CONFIG_HOME/twig/config.toml)")
	root.PersistentFlags().StringVarP(&g.workDir, "chdir", "C", "", "run as if started in this directory")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(g))
	root.AddCommand(newCatFileCmd(g))
	root.AddCommand(newHashObjectCmd(g))
	root.AddCommand(newLsTreeCmd(g))
	root.AddCommand(newWriteTreeCmd(g))
	root.AddCommand(newCommitTreeCmd(g))
	root.AddCommand(newLsRemoteCmd(g))
	root.AddCommand(newCloneCmd(g))
	root.AddCommand(newUnpackObjectsCmd(g))
	categoriseArgs(root)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
