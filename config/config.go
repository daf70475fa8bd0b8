// Package config provides configuration loading for the framedrv CLI.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the CLI's settings.
type Config struct {
	// Backend selects the device: "mem", "file" or "badger".
	Backend string `yaml:"backend"`

	// Image is the device image path: a file for the file backend, a
	// directory for the badger backend. Unused by the mem backend.
	Image string `yaml:"image"`

	// CacheCapacity is the frame cache entry count.
	CacheCapacity int `yaml:"cache_capacity"`

	// LogLevel is one of debug, info, warn, error, quiet.
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Backend:       "file",
		Image:         "framedrv.img",
		CacheCapacity: 16,
		LogLevel:      "info",
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	switch c.Backend {
	case "mem", "file", "badger":
	default:
		return errors.Errorf("config: unknown backend %q", c.Backend)
	}

	if c.Backend != "mem" && c.Image == "" {
		return errors.Errorf("config: %s backend needs an image path", c.Backend)
	}
	if c.CacheCapacity < 1 {
		return errors.New("config: cache_capacity must be positive")
	}
	return nil
}
