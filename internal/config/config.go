// Package config loads the service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
	Geocode GeocodeConfig `yaml:"geocode"`
	Gesture GestureConfig `yaml:"gesture"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HistoryConfig selects the history backend.
type HistoryConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`
}

// GeocodeConfig configures the postal lookup client.
type GeocodeConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GestureConfig holds the long-press thresholds.
type GestureConfig struct {
	LongPress     time.Duration `yaml:"long_press"`
	ModeToggle    time.Duration `yaml:"mode_toggle"`
	ToastDuration time.Duration `yaml:"toast_duration"`
}

// SessionConfig bounds how long an untouched calculator session lives.
type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		History: HistoryConfig{
			Driver: "memory",
			Path:   "forcecalc.db",
		},
		Geocode: GeocodeConfig{
			BaseURL: "https://api.postalpincode.in",
			Timeout: 10 * time.Second,
		},
		Gesture: GestureConfig{
			LongPress:     600 * time.Millisecond,
			ModeToggle:    800 * time.Millisecond,
			ToastDuration: 1500 * time.Millisecond,
		},
		Session: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.History.Driver {
	case "memory":
	case "sqlite":
		if c.History.Path == "" {
			return fmt.Errorf("history.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown history driver %q", c.History.Driver)
	}

	if c.Gesture.LongPress <= 0 || c.Gesture.ModeToggle <= 0 {
		return fmt.Errorf("gesture thresholds must be positive")
	}
	if c.Session.IdleTimeout <= 0 || c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session idle_timeout and sweep_interval must be positive")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FORCECALC_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FORCECALC_HISTORY_DRIVER"); v != "" {
		c.History.Driver = v
	}
	if v := os.Getenv("FORCECALC_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("FORCECALC_GEOCODE_URL"); v != "" {
		c.Geocode.BaseURL = v
	}
}
