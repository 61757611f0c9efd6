// Package cli implements the upstream command-line interface.
//
// # Commands
//
//   - scan: look for newer releases of one package, or of a batch file
//   - handlers: list the registered handlers and their API bases
//   - urls: print the endpoints a handler uses for a remote identity
//
// All commands accept --verbose (-v) for debug logging. The logger travels
// in the command context, where handlers pick it up.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/upstream/internal/core"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the values shown by --version, usually injected with
// ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "upstream",
		Short:         "upstream finds newer releases of packages",
		Long:          `upstream checks package indexes, forges and download sites for releases newer than the installed version of a package.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := core.WithLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("upstream %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.SetErr(os.Stderr)

	root.AddCommand(newScanCmd())
	root.AddCommand(newHandlersCmd())
	root.AddCommand(newURLsCmd())
	return root
}
