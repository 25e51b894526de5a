package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional cubby configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. A nil field means the
// flag's built-in default applies.
type DefaultsConfig struct {
	Concurrency  *int    `toml:"concurrency"`
	Retries      *int    `toml:"retries"`
	RetryDelay   *string `toml:"retry_delay"`
	SkipLocked   *bool   `toml:"skip_locked"`
	SilentLocked *bool   `toml:"silent_locked"`
	BWLimit      *string `toml:"bwlimit"`
	NoProgress   *bool   `toml:"no_progress"`

	// Exclude patterns are prepended to the ones given on the command
	// line rather than replaced by them.
	Exclude []string `toml:"exclude"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "cubby", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
