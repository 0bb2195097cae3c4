// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

// Package config loads accountd configuration from defaults, an optional
// YAML file, and command-line flags, in that order of precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default values applied before any file or flag overrides.
const (
	DefaultConnectRetries = 5
	DefaultSessionTTL     = 24 * time.Hour
	DefaultResetTTL       = time.Hour
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
)

// Config holds the full accountd configuration tree.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Reset    ResetConfig    `koanf:"reset"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the postgres:// connection string. Defaults to the
	// DATABASE_URL environment variable when unset.
	URL string `koanf:"url"`
	// ConnectRetries is the number of ping retries on startup.
	ConnectRetries uint64 `koanf:"connect_retries"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// ResetConfig holds password reset token settings.
type ResetConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// MetricsConfig holds observability endpoint settings.
type MetricsConfig struct {
	// Addr is the metrics/health HTTP listen address. Empty disables
	// the observability server.
	Addr string `koanf:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (flag, config file, or DATABASE_URL)")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Reset.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("reset.ttl must be positive, got %s", c.Reset.TTL)
	}
	return nil
}

// Load builds the configuration. Precedence, lowest to highest:
// built-in defaults, the YAML file at path (skipped when path is empty),
// then the given flag set (skipped when nil). Flags must use dotted key
// names matching the config tree (e.g. "database.url").
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"database.url":             os.Getenv("DATABASE_URL"),
		"database.connect_retries": DefaultConnectRetries,
		"session.ttl":              DefaultSessionTTL,
		"reset.ttl":                DefaultResetTTL,
		"metrics.addr":             DefaultMetricsAddr,
		"log.format":               DefaultLogFormat,
		"log.level":                DefaultLogLevel,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal config").Wrap(err)
	}

	return &cfg, nil
}
