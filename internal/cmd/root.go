package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for cukeguard
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cukeguard",
		Short: "Watch cucumber features and run what changed",
		Long: `cukeguard watches a project's cucumber features and runs the ones
that change, keeping failed scenarios in the next run until they pass.

When any feature being run carries the focus tag (default @focus),
only the tagged scenarios are handed to cucumber.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewFocusCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}
