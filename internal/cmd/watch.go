package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/cukeguard/internal/logger"
	"github.com/harrison/cukeguard/internal/watch"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the project and run changed features",
		Long: `Watch the project directory and run cucumber whenever matching files
change.

On start every feature set is run (all_on_start). Changed feature files
are run together with any features that failed before (keep_failed).
Once a failing suite passes, every feature set is run again
(all_after_pass).

Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: watchCommand,
	}

	addRunFlags(cmd)

	return cmd
}

// watchCommand implements the watch command logic
func watchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	g, err := newGuard(cmd, cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(watch.Config{
		BaseDir:  ".",
		Patterns: cfg.Watch.Patterns,
		Ignore:   cfg.Watch.Ignore,
		Debounce: cfg.Watch.Debounce,
		Logger:   log,
		OnChange: func(ctx context.Context, changed []string) {
			// Run errors are already logged by the guard; keep watching.
			_, _ = g.RunOnModifications(ctx, changed)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if err := g.Start(ctx); err != nil {
		return err
	}

	if err := w.Run(ctx); err != nil {
		return err
	}
	log.LogInfo("Stopped watching")
	return nil
}
