package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "lineserve",
		Short: "A tiny TCP server answering request lines with canned responses",
		Long: `lineserve accepts TCP connections, reads one request per connection and
answers it with a static payload chosen by the request line.

Configuration comes from built-in defaults, an optional YAML or JSON file
(--config) and LINESERVE_* environment variables, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML or JSON)")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lineserve %s (commit: %s)\n", Version, Commit)
		},
	})
	return root
}
