package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func decodeFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags. It returns
// the validated Config and the config file path it read (or would have read).
// A missing file is not an error; the gateway can run from env alone.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, string, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(cfgPath); err == nil {
		if cfg, err = decodeFile(cfgPath); err != nil {
			return nil, cfgPath, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, cfgPath, fmt.Errorf("reading config file %s: %w", cfgPath, err)
	}

	env.apply(cfg)

	if cli.Listen != nil {
		cfg.Server.Listen = *cli.Listen
	}

	if cli.RootFolderID != nil {
		cfg.Drive.RootFolderID = *cli.RootFolderID
	}

	if err := Validate(cfg); err != nil {
		return nil, cfgPath, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, cfgPath, nil
}
