// Package config loads kittynode's application settings and stores
// per-package configuration.
//
// Application settings live in <data>/config.yaml and can be overridden by
// KITTYNODE_* environment variables. Package configuration lives in
// <data>/packages/<name>/config.json; it is read as JSONC so hand-edited
// files may carry comments and trailing commas.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/paths"
)

// Environment variables overriding config.yaml values.
const (
	EnvDockerHost  = "KITTYNODE_DOCKER_HOST"
	EnvLogLevel    = "KITTYNODE_LOG_LEVEL"
	EnvMetricsFile = "KITTYNODE_METRICS_FILE"
)

// DefaultLogLevel applies when neither the file nor the environment sets one.
const DefaultLogLevel = "warn"

// Config is the application configuration.
type Config struct {
	// DockerHost is the daemon address. Empty means auto-detect.
	DockerHost string `yaml:"docker_host,omitempty"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	// MetricsFile, when set, receives a Prometheus textfile after each
	// command.
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{LogLevel: DefaultLogLevel}
}

// Load reads <dataDir>/config.yaml over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(dataDir string) (Config, error) {
	cfg := Default()
	path := paths.ConfigFile(dataDir)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, model.NewError(model.KindFilesystem, "read config", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, model.NewError(model.KindInvalidConfig, "parse config", path, err)
		}
	}

	LoadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, model.NewError(model.KindInvalidConfig, "validate config", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies KITTYNODE_* environment overrides to cfg.
func LoadFromEnv(cfg *Config) {
	if host := os.Getenv(EnvDockerHost); host != "" {
		cfg.DockerHost = host
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}
	if file := os.Getenv(EnvMetricsFile); file != "" {
		cfg.MetricsFile = file
	}
}

// Validate checks that the log level names a zap level.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level is the default.
func (c Config) Level() (zapcore.Level, error) {
	name := strings.TrimSpace(c.LogLevel)
	if name == "" {
		name = DefaultLogLevel
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InvalidLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Save writes cfg to <dataDir>/config.yaml, creating the directory.
func Save(dataDir string, cfg Config) error {
	path := paths.ConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return model.NewError(model.KindFilesystem, "create config directory", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, paths.DefaultFileMode); err != nil {
		return model.NewError(model.KindFilesystem, "write config", path, err)
	}
	return nil
}
