// Package config loads environment driven configuration for the agency
// service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures environment driven configuration values for the
// agency service.
type Config struct {
	HTTPPort        int           `env:"AGENCY_HTTP_PORT" envDefault:"8080"`
	SQLiteDSN       string        `env:"AGENCY_SQLITE_DSN" envDefault:"file:agency.db?_pragma=foreign_keys(1)"`
	LogLevel        string        `env:"AGENCY_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"AGENCY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReadTimeout     time.Duration `env:"AGENCY_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"AGENCY_WRITE_TIMEOUT" envDefault:"15s"`
}

// Load parses configuration values from the current process
// environment, applying defaults for optional fields and validating the
// rest.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	invalid := make([]string, 0, 2)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "AGENCY_HTTP_PORT")
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		invalid = append(invalid, "AGENCY_SQLITE_DSN")
	}
	if cfg.ShutdownTimeout <= 0 {
		invalid = append(invalid, "AGENCY_SHUTDOWN_TIMEOUT")
	}
	if cfg.ReadTimeout <= 0 {
		invalid = append(invalid, "AGENCY_READ_TIMEOUT")
	}
	if cfg.WriteTimeout <= 0 {
		invalid = append(invalid, "AGENCY_WRITE_TIMEOUT")
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr is the listen address derived from the configured port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
