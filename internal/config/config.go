package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harrison/cukeguard/internal/logger"
	"gopkg.in/yaml.v3"
)

// WatchConfig represents file watcher configuration
type WatchConfig struct {
	// Patterns are doublestar globs (relative to the project root) whose
	// changes trigger a run
	Patterns []string `yaml:"patterns"`

	// Ignore are doublestar globs that never trigger a run
	Ignore []string `yaml:"ignore"`

	// Debounce is the quiet period after the last change before running
	Debounce time.Duration `yaml:"debounce"`
}

// Config represents cukeguard configuration options
type Config struct {
	// Cmd is the cucumber command, e.g. "bundle exec cucumber"
	Cmd string `yaml:"cmd"`

	// CmdAdditionalArgs are appended after Cmd on every run
	CmdAdditionalArgs string `yaml:"cmd_additional_args"`

	// FocusOn is the tag that narrows a run to the tagged lines
	FocusOn string `yaml:"focus_on"`

	// AllOnStart runs every feature set when watching starts
	AllOnStart bool `yaml:"all_on_start"`

	// AllAfterPass runs every feature set once a previously failing run passes
	AllAfterPass bool `yaml:"all_after_pass"`

	// KeepFailed re-runs failed features until they pass
	KeepFailed bool `yaml:"keep_failed"`

	// FeatureSets are the directories holding feature files
	FeatureSets []string `yaml:"feature_sets"`

	// RerunFile is where cucumber's rerun formatter records failures
	RerunFile string `yaml:"rerun_file"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Watch contains file watcher configuration
	Watch WatchConfig `yaml:"watch"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Cmd:          "cucumber",
		FocusOn:      "@focus",
		AllOnStart:   true,
		AllAfterPass: true,
		KeepFailed:   true,
		FeatureSets:  []string{"features"},
		RerunFile:    "rerun.txt",
		LogLevel:     "info",
		Watch: WatchConfig{
			Patterns: []string{"**/*.feature", "**/*.rb"},
			Debounce: 500 * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointers distinguish "absent" from an explicit false or empty value;
	// the debounce is parsed separately so "750ms" works.
	type yamlWatch struct {
		Patterns []string `yaml:"patterns"`
		Ignore   []string `yaml:"ignore"`
		Debounce string   `yaml:"debounce"`
	}
	type yamlConfig struct {
		Cmd               *string   `yaml:"cmd"`
		CmdAdditionalArgs *string   `yaml:"cmd_additional_args"`
		FocusOn           *string   `yaml:"focus_on"`
		AllOnStart        *bool     `yaml:"all_on_start"`
		AllAfterPass      *bool     `yaml:"all_after_pass"`
		KeepFailed        *bool     `yaml:"keep_failed"`
		FeatureSets       []string  `yaml:"feature_sets"`
		RerunFile         *string   `yaml:"rerun_file"`
		LogLevel          *string   `yaml:"log_level"`
		Watch             yamlWatch `yaml:"watch"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Cmd != nil {
		cfg.Cmd = *yamlCfg.Cmd
	}
	if yamlCfg.CmdAdditionalArgs != nil {
		cfg.CmdAdditionalArgs = *yamlCfg.CmdAdditionalArgs
	}
	if yamlCfg.FocusOn != nil {
		cfg.FocusOn = *yamlCfg.FocusOn
	}
	if yamlCfg.AllOnStart != nil {
		cfg.AllOnStart = *yamlCfg.AllOnStart
	}
	if yamlCfg.AllAfterPass != nil {
		cfg.AllAfterPass = *yamlCfg.AllAfterPass
	}
	if yamlCfg.KeepFailed != nil {
		cfg.KeepFailed = *yamlCfg.KeepFailed
	}
	if yamlCfg.FeatureSets != nil {
		cfg.FeatureSets = yamlCfg.FeatureSets
	}
	if yamlCfg.RerunFile != nil {
		cfg.RerunFile = *yamlCfg.RerunFile
	}
	if yamlCfg.LogLevel != nil {
		cfg.LogLevel = *yamlCfg.LogLevel
	}

	if yamlCfg.Watch.Patterns != nil {
		cfg.Watch.Patterns = yamlCfg.Watch.Patterns
	}
	if yamlCfg.Watch.Ignore != nil {
		cfg.Watch.Ignore = yamlCfg.Watch.Ignore
	}
	if yamlCfg.Watch.Debounce != "" {
		debounce, err := time.ParseDuration(yamlCfg.Watch.Debounce)
		if err != nil {
			return nil, fmt.Errorf("invalid watch.debounce format %q: %w", yamlCfg.Watch.Debounce, err)
		}
		cfg.Watch.Debounce = debounce
	}

	return cfg, nil
}

// LoadConfigFromHome loads config.yaml from the cukeguard home directory,
// the same directory that holds the run lock.
// If the file doesn't exist, returns default configuration without error
func LoadConfigFromHome() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfig(path)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(cmd *string, additionalArgs *string, focusOn *string, logLevel *string, keepFailed *bool) {
	if cmd != nil {
		c.Cmd = *cmd
	}
	if additionalArgs != nil {
		c.CmdAdditionalArgs = *additionalArgs
	}
	if focusOn != nil {
		c.FocusOn = *focusOn
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if keepFailed != nil {
		c.KeepFailed = *keepFailed
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Cmd) == "" {
		return fmt.Errorf("cmd cannot be empty")
	}

	// An empty tag would match every line of every feature file.
	if c.FocusOn == "" {
		return fmt.Errorf("focus_on cannot be empty")
	}

	if len(c.FeatureSets) == 0 {
		return fmt.Errorf("feature_sets must list at least one directory")
	}
	for i, set := range c.FeatureSets {
		if strings.TrimSpace(set) == "" {
			return fmt.Errorf("feature_sets[%d] cannot be empty", i)
		}
	}

	if c.KeepFailed && c.RerunFile == "" {
		return fmt.Errorf("rerun_file cannot be empty when keep_failed is enabled")
	}

	if !logger.IsValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %v", c.Watch.Debounce)
	}

	return nil
}
