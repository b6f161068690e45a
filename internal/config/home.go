package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// HomeDirName is the per-project directory holding config and lock files
	HomeDirName = ".cukeguard"

	// ConfigFileName is the config file inside HomeDirName
	ConfigFileName = "config.yaml"

	// HomeEnvVar overrides the home directory location
	HomeEnvVar = "CUKEGUARD_HOME"
)

// GetHome returns the cukeguard home directory
// Priority order:
//  1. CUKEGUARD_HOME environment variable (if set)
//  2. .cukeguard under the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	home := os.Getenv(HomeEnvVar)
	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, HomeDirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create cukeguard home directory: %w", err)
	}
	return home, nil
}

// GetLockPath returns the path of the lock file that serializes cucumber
// runs for one project. Always returns: $CUKEGUARD_HOME/run.lock
func GetLockPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "run.lock"), nil
}

// GetConfigPath returns the path of the project config file.
// Always returns: $CUKEGUARD_HOME/config.yaml
func GetConfigPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}
