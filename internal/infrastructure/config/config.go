// Package config loads service configuration from the environment, with an
// optional YAML file overlay for deployments that prefer files over env vars.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Channels  ChannelConfig   `yaml:"channels"`
	Policy    PolicyConfig    `yaml:"policy"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8410" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// ChannelConfig holds the channel table configuration. Count is fixed for
// the lifetime of the process; capacity is only the initial value and can be
// changed per channel through the control surface.
type ChannelConfig struct {
	Count           int `envconfig:"CHANNEL_COUNT" default:"2" yaml:"count"`
	DefaultCapacity int `envconfig:"CHANNEL_CAPACITY" default:"1024" yaml:"default_capacity"`
}

// PolicyConfig holds open-time access policy.
type PolicyConfig struct {
	SingleWriter bool `envconfig:"POLICY_SINGLE_WRITER" default:"false" yaml:"single_writer"`
	MaxOpeners   int  `envconfig:"POLICY_MAX_OPENERS" default:"0" yaml:"max_openers"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"200" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"400" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("KANAL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads configuration from environment variables, then overlays the
// given YAML file on top.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("KANAL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration: two channels of 1 KiB each,
// no access limits.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8410",
			Host: "0.0.0.0",
		},
		Channels: ChannelConfig{
			Count:           2,
			DefaultCapacity: 1024,
		},
		Policy: PolicyConfig{
			SingleWriter: false,
			MaxOpeners:   0,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 200,
			Burst:             400,
			Enabled:           true,
		},
	}
}

// Validate rejects configurations the registry would refuse at startup.
func (c *Config) Validate() error {
	if c.Channels.Count < 1 {
		return fmt.Errorf("config: channel count must be at least 1, got %d", c.Channels.Count)
	}
	if c.Channels.DefaultCapacity < 1 {
		return fmt.Errorf("config: channel capacity must be at least 1, got %d", c.Channels.DefaultCapacity)
	}
	if c.Policy.MaxOpeners < 0 {
		return fmt.Errorf("config: max openers must not be negative, got %d", c.Policy.MaxOpeners)
	}
	return nil
}
