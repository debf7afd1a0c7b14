package config

import (
	"os"
	"path/filepath"
)

const (
	appName        = "drivegate"
	configFileName = "config.toml"
)

// DefaultConfigPath is where the config file lives when neither
// DRIVEGATE_CONFIG nor --config names one: $XDG_CONFIG_HOME/drivegate on
// Linux, ~/Library/Application Support/drivegate on macOS, %AppData% on
// Windows. It is empty when no home directory can be determined.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appName, configFileName)
}
