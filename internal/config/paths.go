package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/errors"
)

// HomeEnvVar overrides the location of the global crucible directory.
const HomeEnvVar = "CRUCIBLE_HOME"

// GlobalConfigDir returns the global crucible directory, ~/.crucible unless
// CRUCIBLE_HOME is set.
func GlobalConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.CrucibleHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// ProjectConfigPath returns the project configuration file, relative to the
// working directory.
func ProjectConfigPath() string {
	return filepath.Join(constants.CrucibleHome, constants.ConfigFileName)
}

// LogDir returns the directory receiving the rotating CLI log.
func LogDir() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.LogsDir), nil
}
