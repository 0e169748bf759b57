package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TASKKEEPER_"

type envConfig struct {
	ServerURL         string        `env:"SERVER_URL"`
	DatabasePath      string        `env:"DATABASE_PATH"`
	AuthCheckInterval time.Duration `env:"AUTH_CHECK_INTERVAL"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	LogLevel          string        `env:"LOG_LEVEL"`
	LogFormat         string        `env:"LOG_FORMAT"`
}

// parseEnv overlays cfg with TASKKEEPER_* variables. Variables already set
// in the process take precedence over the .env file.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if ec.ServerURL != "" {
		cfg.ServerURL = ec.ServerURL
	}
	if ec.DatabasePath != "" {
		cfg.DatabasePath = ec.DatabasePath
	}
	if ec.AuthCheckInterval != 0 {
		cfg.AuthCheckInterval = ec.AuthCheckInterval
	}
	if ec.RequestTimeout != 0 {
		cfg.RequestTimeout = ec.RequestTimeout
	}
	if ec.LogLevel != "" {
		cfg.LogLevel = ec.LogLevel
	}
	if ec.LogFormat != "" {
		cfg.LogFormat = ec.LogFormat
	}
	return nil
}
