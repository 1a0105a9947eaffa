// Package config loads the shmcam CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the shmcam CLI configuration.
type Config struct {
	Device     string        `yaml:"device"`
	Channel    int           `yaml:"channel"` // Used when Device is empty
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	FPS        int           `yaml:"fps"`
	Backend    string        `yaml:"backend"` // "single" or "ring"
	Dir        string        `yaml:"dir"`
	Prefix     string        `yaml:"prefix"`
	MaxPayload uint32        `yaml:"max_payload"`
	RingName   string        `yaml:"ring_name"`
	Interval   time.Duration `yaml:"interval"`
	Registry   string        `yaml:"registry"` // Device file, non-windows hosts only
	LogLevel   string        `yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Channel:    0,
		Width:      1280,
		Height:     720,
		FPS:        30,
		Backend:    "single",
		MaxPayload: 3840 * 2160 * 4 * 2,
		RingName:   "OBSVirtualCamVideo",
		Interval:   time.Second / 30,
		LogLevel:   "info",
	}
}

// DefaultPath returns the default config file path: ~/.shmcam/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".shmcam", "config.yaml")
	}
	return filepath.Join(home, ".shmcam", "config.yaml")
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns Default with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", c.FPS)
	}
	switch c.Backend {
	case "single", "ring":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
