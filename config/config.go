// Package config defines process configuration and its loading order.
//
// Precedence (low -> high):
//  1. defaults
//  2. YAML file pointed to by RANKUP_CONFIG
//  3. environment variables with the RANKUP_ prefix
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the sqlite database file. ":memory:" keeps everything
	// in-process, which is what the tests use.
	DBPath string `koanf:"db_path"`

	// AllowedOrigins lists CORS origins for the frontend.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// Defaults returns the baseline configuration.
func Defaults() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		DBPath:                 "rankup.db",
		AllowedOrigins:         []string{"http://localhost:5173", "http://localhost:8080"},
		ShutdownTimeoutSeconds: 10,
	}
}

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Env keys map RANKUP_DB_PATH -> db_path.
func Load() (*Config, error) {
	base := Defaults()

	k := koanf.New(".")

	if path := os.Getenv("RANKUP_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("RANKUP_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "rankup_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	return &cfg, nil
}
