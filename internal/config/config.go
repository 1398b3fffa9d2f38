// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Flat snake_case keys shared by the YAML file and the CG_ environment.
// - New returns the defaults; Load layers file and environment on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store driver names accepted by StoreDriver.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver picks the progress backend: memory, sqlite or redis.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// SimulatorBaseURL is the root of the conversational backend.
	SimulatorBaseURL string `koanf:"simulator_base_url"`
	SimulatorToken   string `koanf:"simulator_token"`

	// TurnTimeoutMS bounds each simulator call.
	TurnTimeoutMS int `koanf:"turn_timeout_ms"`

	// IdleTTLMinutes is how long an untouched trainer is kept in memory.
	IdleTTLMinutes int `koanf:"idle_ttl_minutes"`

	// Timezone names the IANA zone calendar days are computed in.
	Timezone string `koanf:"timezone"`

	// ChartDays is the default chart window.
	ChartDays int `koanf:"chart_days"`

	// DedupeSize bounds the idempotency-key cache.
	DedupeSize       int `koanf:"dedupe_size"`
	DedupeTTLMinutes int `koanf:"dedupe_ttl_minutes"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		StoreDriver:       DriverMemory,
		SQLitePath:        "cyberguardian.db",
		RedisAddr:         "localhost:6379",
		SimulatorBaseURL:  "http://localhost:8000",
		TurnTimeoutMS:     20_000,
		IdleTTLMinutes:    30,
		Timezone:          "Local",
		ChartDays:         7,
		DedupeSize:        10_000,
		DedupeTTLMinutes:  24 * 60,
		ShutdownTimeoutMS: 10_000,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != DriverMemory && c.StoreDriver != DriverSQLite && c.StoreDriver != DriverRedis:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == DriverSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
	case c.StoreDriver == DriverRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr is required for the redis driver", ErrInvalidConfig)
	case strings.TrimSpace(c.SimulatorBaseURL) == "":
		return fmt.Errorf("%w: simulator_base_url must not be empty", ErrInvalidConfig)
	case c.TurnTimeoutMS <= 0:
		return fmt.Errorf("%w: turn_timeout_ms must be positive", ErrInvalidConfig)
	case c.IdleTTLMinutes <= 0:
		return fmt.Errorf("%w: idle_ttl_minutes must be positive", ErrInvalidConfig)
	case c.ChartDays <= 0 || c.ChartDays > 30:
		return fmt.Errorf("%w: chart_days must be within 1..30", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.DedupeTTLMinutes < 0:
		return fmt.Errorf("%w: dedupe_ttl_minutes must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// TurnTimeout returns TurnTimeoutMS as a duration.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutMS) * time.Millisecond
}

// IdleTTL returns IdleTTLMinutes as a duration.
func (c *Config) IdleTTL() time.Duration {
	return time.Duration(c.IdleTTLMinutes) * time.Minute
}

// DedupeTTL returns DedupeTTLMinutes as a duration.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLMinutes) * time.Minute
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Location resolves Timezone. An empty value means the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}
