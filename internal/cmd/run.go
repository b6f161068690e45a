package cmd

import (
	"errors"

	"github.com/harrison/cukeguard/internal/logger"
	"github.com/spf13/cobra"
)

// ErrRunFailed is returned when cucumber ran and reported failures.
var ErrRunFailed = errors.New("cucumber run failed")

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths]...",
		Short: "Run cucumber once",
		Long: `Run cucumber once, applying the same path cleaning and focusing the
watcher uses.

Without paths every feature set is run. Paths outside the feature sets,
missing files and non-feature files are dropped.

Configuration is loaded from .cukeguard/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  cukeguard run
  cukeguard run features/login.feature features/admin
  cukeguard run --cmd "bundle exec cucumber" --focus-on @wip
  cukeguard run --dry-run features`,
		RunE: runCommand,
	}

	addRunFlags(cmd)

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	g, err := newGuard(cmd, cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if len(args) == 0 {
		result, err := g.RunAll(ctx)
		if err != nil {
			return err
		}
		if !result.Passed && !result.Skipped {
			return ErrRunFailed
		}
		return nil
	}

	result, err := g.RunPaths(ctx, args)
	if err != nil {
		return err
	}
	if !result.Passed && !result.Skipped {
		return ErrRunFailed
	}
	return nil
}
