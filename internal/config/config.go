// Package config loads server configuration from defaults, an optional YAML
// file and SITEFLOW_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rpggio/siteflow/internal/domain/routing"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SITEFLOW"

// PathEnv names the variable holding the optional YAML file path.
const PathEnv = EnvPrefix + "_CONFIG_PATH"

// ErrInvalid is returned when the merged configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"server"`
	Transport TransportConfig `yaml:"transport" envconfig:"transport"`
	DB        DBConfig        `yaml:"db" envconfig:"db"`
	Log       LogConfig       `yaml:"log" envconfig:"log"`
	Sync      SyncConfig      `yaml:"sync" envconfig:"sync"`
	// Routing is file-only; the tables are too structured for env vars.
	Routing routing.Rules `yaml:"routing" ignored:"true"`
}

type ServerConfig struct {
	Host string `yaml:"host" envconfig:"host"`
	Port int    `yaml:"port" envconfig:"port" validate:"min=1,max=65535"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" envconfig:"mode" validate:"oneof=http stdio"`
	// DefaultRole identifies MCP sessions that send no role of their own.
	DefaultRole string `yaml:"default_role" envconfig:"default_role"`
}

type DBConfig struct {
	Driver string `yaml:"driver" envconfig:"driver" validate:"oneof=sqlite memory"`
	Path   string `yaml:"path" envconfig:"path" validate:"required_if=Driver sqlite"`
}

type LogConfig struct {
	Level string `yaml:"level" envconfig:"level" validate:"oneof=debug info warn error"`
}

// SyncConfig tunes the synchronisation adapter.
type SyncConfig struct {
	// DebounceWindow delays pushes of staged edits.
	DebounceWindow time.Duration `yaml:"debounce_window" envconfig:"debounce_window" validate:"min=0"`
	// RefreshInterval is the exclusion and draft refresh period; 0 disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"refresh_interval" validate:"min=0"`
	RefreshJitter   time.Duration `yaml:"refresh_jitter" envconfig:"refresh_jitter" validate:"min=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{Mode: "http"},
		DB: DBConfig{
			Driver: "sqlite",
			Path:   "siteflow.db",
		},
		Log: LogConfig{Level: "info"},
		Sync: SyncConfig{
			DebounceWindow:  500 * time.Millisecond,
			RefreshInterval: 30 * time.Second,
			RefreshJitter:   5 * time.Second,
		},
		Routing: routing.DefaultRules(),
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(PathEnv); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints on the merged configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// loadFromFile overlays the file onto cfg. Map tables in the routing section
// merge into the defaults; lists replace them.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
