package cmd

import (
	"fmt"

	"github.com/harrison/cukeguard/internal/config"
	"github.com/harrison/cukeguard/internal/filelock"
	"github.com/harrison/cukeguard/internal/guard"
	"github.com/harrison/cukeguard/internal/logger"
	"github.com/harrison/cukeguard/internal/runner"
	"github.com/spf13/cobra"
)

// addRunFlags registers the flags shared by run and watch.
func addRunFlags(cmd *cobra.Command) {
	addConfigFlags(cmd)
	cmd.Flags().String("cmd", "", "Cucumber command (default: cucumber)")
	cmd.Flags().String("cmd-additional-args", "", "Extra arguments passed to cucumber")
	cmd.Flags().String("focus-on", "", "Focus tag (default: @focus)")
	cmd.Flags().Bool("keep-failed", true, "Re-run failed features until they pass")
	cmd.Flags().Bool("dry-run", false, "Print the cucumber command instead of running it")
}

// addConfigFlags registers the flags every subcommand accepts.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: $CUKEGUARD_HOME/config.yaml)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
}

// loadConfig reads the config file, applies any flags that were set and
// validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromHome()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Only flags the user set override the file.
	cfg.MergeWithFlags(
		changedString(cmd, "cmd"),
		changedString(cmd, "cmd-additional-args"),
		changedString(cmd, "focus-on"),
		changedString(cmd, "log-level"),
		changedBool(cmd, "keep-failed"),
	)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func changedString(cmd *cobra.Command, name string) *string {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// newGuard wires a guard that runs cucumber as a child process and holds
// the project run lock around every dispatch.
func newGuard(cmd *cobra.Command, cfg *config.Config, log *logger.ConsoleLogger) (*guard.Guard, error) {
	lockPath, err := config.GetLockPath()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare run lock: %w", err)
	}

	exec := runner.NewExecRunner("")
	exec.Stdout = cmd.OutOrStdout()
	exec.Stderr = cmd.ErrOrStderr()

	g := guard.New(cfg, runner.New(exec), filelock.NewFileLock(lockPath), log)
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	g.SetDryRun(dryRun)
	return g, nil
}
