package cmd

import (
	"errors"
	"fmt"

	"github.com/harrison/cukeguard/internal/focus"
	"github.com/harrison/cukeguard/internal/logger"
	"github.com/spf13/cobra"
)

// NewFocusCommand creates the focus command
func NewFocusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus [paths]...",
		Short: "Print the paths cucumber would run after focusing",
		Long: `Scan feature files and directories for the focus tag and print the
paths cucumber would be given, one per line.

When a feature contains the tag, its path is printed with the line numbers
of the tagged lines (features/login.feature:3:12). When nothing is tagged
the paths are printed unchanged. Directories are searched for *.feature
files recursively.

Examples:
  cukeguard focus features
  cukeguard focus features/login.feature --tag @wip`,
		RunE: focusCommand,
	}

	addConfigFlags(cmd)
	cmd.Flags().String("tag", "", "Tag to focus on (default: focus_on from config)")

	return cmd
}

// focusCommand implements the focus command logic
func focusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tag := cfg.FocusOn
	if cmd.Flags().Changed("tag") {
		tag, _ = cmd.Flags().GetString("tag")
		if tag == "" {
			return errors.New("--tag cannot be empty")
		}
	}

	if len(args) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No paths given, nothing to focus")
		return nil
	}

	result, err := focus.Focus(args, tag)
	if err != nil {
		return fmt.Errorf("failed to focus: %w", err)
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	log.LogFocus(tag, result)

	out := cmd.OutOrStdout()
	for _, p := range result.Paths {
		fmt.Fprintln(out, p)
	}
	return nil
}
