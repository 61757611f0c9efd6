package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/upstream"
	"github.com/git-pkgs/upstream/internal/core"
)

func newHandlersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "List the registered handlers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, name := range upstream.SupportedHandlers() {
				base := upstream.DefaultURL(name)
				if base == "" {
					base = "-"
				}
				if _, err := fmt.Fprintf(w, "%-12s %s\n", name, base); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newURLsCmd() *cobra.Command {
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "urls HANDLER NAME [VERSION]",
		Short: "Print the endpoints a handler uses for a remote identity",
		Example: `  upstream urls cargo serde 1.0.195
  upstream urls maven com.google.guava:guava`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := flags.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			h, ok := eng.Handler(args[0])
			if !ok {
				return fmt.Errorf("unknown handler: %s", args[0])
			}
			p, ok := h.(core.URLProvider)
			if !ok {
				return fmt.Errorf("handler %s has no endpoints", args[0])
			}
			var ver string
			if len(args) == 3 {
				ver = args[2]
			}

			urls := upstream.BuildURLs(p.URLs(), args[1], ver)
			keys := make([]string, 0, len(urls))
			for k := range urls {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s\n", k+":", urls[k]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
