// Package config loads the lightrecord CLI configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-mizu/lightrecord"
)

// Config describes the database to connect to and the base structures that
// queries may be shaped against.
type Config struct {
	Driver       string       `yaml:"driver"`
	DSN          string       `yaml:"dsn"`
	LogLevel     string       `yaml:"log-level,omitempty"` // debug, info, warn, error (default "info")
	MaxOpenConns int          `yaml:"max-open-conns,omitempty"`
	Bases        []BaseConfig `yaml:"bases,omitempty"`
}

// BaseConfig declares one base structure.
type BaseConfig struct {
	Name       string   `yaml:"name"`
	PrimaryKey string   `yaml:"primary-key,omitempty"`
	Columns    []string `yaml:"columns,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Driver: "sqlite3", LogLevel: "info"}
}

// Load reads a YAML file and applies environment overrides. An empty path
// starts from Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LIGHTRECORD_DRIVER"); v != "" {
		c.Driver = v
	}
	if v := os.Getenv("LIGHTRECORD_DSN"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that base names are present and unique.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Bases))
	for i, b := range c.Bases {
		if b.Name == "" {
			return fmt.Errorf("bases[%d]: name is required", i)
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("bases[%d]: duplicate base %q", i, b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}

// ErrUnknownBase is returned by Base for names the configuration does not declare.
var ErrUnknownBase = errors.New("unknown base")

// Base returns the declared base structure with the given name. An empty name
// yields an anonymous base with no primary key, for free-form queries.
func (c *Config) Base(name string) (*lightrecord.Table, error) {
	if name == "" {
		return lightrecord.NewTable("query", ""), nil
	}
	for _, b := range c.Bases {
		if b.Name == name {
			return lightrecord.NewTable(b.Name, b.PrimaryKey, b.Columns...), nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBase, name)
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
