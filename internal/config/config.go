package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	API struct {
		BaseURL        string        `yaml:"base_url"`
		Timeout        time.Duration `yaml:"timeout"`
		DedupeRequests bool          `yaml:"dedupe_requests"`
	} `yaml:"api"`
	Persistence struct {
		Env     string `yaml:"env"`     // "client" or "server"
		Backend string `yaml:"backend"` // "memory", "file", "sqlite"
		Path    string `yaml:"path"`
	} `yaml:"persistence"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Stub struct {
		Addr        string `yaml:"addr"`
		TokenSecret string `yaml:"token_secret"`
	} `yaml:"stub"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables take precedence over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if v := os.Getenv("DESK_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("DESK_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DESK_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("DESK_ENV"); v != "" {
		cfg.Persistence.Env = v
	}
	if v := os.Getenv("DESK_PERSIST_BACKEND"); v != "" {
		cfg.Persistence.Backend = v
	}
	if v := os.Getenv("DESK_PERSIST_PATH"); v != "" {
		cfg.Persistence.Path = v
	}
	if v := os.Getenv("DESK_REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("DESK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DESK_TOKEN_SECRET"); v != "" {
		cfg.Stub.TokenSecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.Persistence.Env == "" {
		cfg.Persistence.Env = "client"
	}
	if cfg.Persistence.Backend == "" {
		cfg.Persistence.Backend = "file"
	}
	if cfg.Persistence.Path == "" {
		switch cfg.Persistence.Backend {
		case "sqlite":
			cfg.Persistence.Path = "data/desk.db"
		default:
			cfg.Persistence.Path = "data/desk_state.json"
		}
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */5 * * * *"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Stub.Addr == "" {
		cfg.Stub.Addr = ":8000"
	}
	if cfg.Stub.TokenSecret == "" {
		cfg.Stub.TokenSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and enumerations hold
// known values.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	switch c.Persistence.Env {
	case "client", "server":
	default:
		return fmt.Errorf("persistence.env must be client or server, got %q", c.Persistence.Env)
	}
	switch c.Persistence.Backend {
	case "memory", "file", "sqlite":
	default:
		return fmt.Errorf("persistence.backend must be memory, file or sqlite, got %q", c.Persistence.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
