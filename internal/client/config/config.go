package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the TaskKeeper CLI.
type Config struct {
	ServerURL         string
	DatabasePath      string
	AuthCheckInterval time.Duration
	RequestTimeout    time.Duration
	LogLevel          string
	LogFormat         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.DatabasePath = "taskkeeper.db"
	c.AuthCheckInterval = 5 * time.Minute
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig builds a Config from defaults, the config file, the
// environment and args (usually os.Args[1:]), later sources winning.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url must be set")
	}
	if c.AuthCheckInterval <= 0 {
		return fmt.Errorf("auth check interval must be positive, got %s", c.AuthCheckInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
