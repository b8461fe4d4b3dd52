// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime knob of the babylog service.
type Config struct {
	Addr         string        `env:"BABYLOG_ADDR" envDefault:":8080"`
	DB           string        `env:"BABYLOG_DB" envDefault:"babylog.db"`
	Users        []string      `env:"BABYLOG_USERS" envSeparator:","`
	UsersFile    string        `env:"BABYLOG_USERS_FILE"`
	SessionTTL   time.Duration `env:"BABYLOG_SESSION_TTL" envDefault:"720h"`
	LogLevel     string        `env:"BABYLOG_LOG_LEVEL" envDefault:"info"`
	ReadTimeout  time.Duration `env:"BABYLOG_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"BABYLOG_WRITE_TIMEOUT" envDefault:"15s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("BABYLOG_SESSION_TTL must be positive")
	}
	return cfg, nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("BABYLOG_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
