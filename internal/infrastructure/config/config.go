package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
	Sandbox   SandboxConfig
	Template  TemplateConfig
	PreNav    PreNavConfig
	Logging   LogConfig
}

// ServerConfig holds ops HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// RateLimitConfig holds per-client limits for the ops server.
type RateLimitConfig struct {
	Enabled           bool          `envconfig:"OPS_RATE_LIMIT_ENABLED" default:"false"`
	RequestsPerSecond float64       `envconfig:"OPS_RATE_LIMIT_RPS" default:"20"`
	Burst             int           `envconfig:"OPS_RATE_LIMIT_BURST" default:"40"`
	IdleTTL           time.Duration `envconfig:"OPS_RATE_LIMIT_IDLE_TTL" default:"10m"`
}

// SandboxConfig holds execution limits.
type SandboxConfig struct {
	Timeout            time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"60s"`
	PageCallBudget     int           `envconfig:"SANDBOX_PAGE_CALL_BUDGET" default:"1000"`
	AllowedPageMethods []string      `envconfig:"SANDBOX_ALLOWED_PAGE_METHODS"`
	MaxConcurrent      int           `envconfig:"SANDBOX_MAX_CONCURRENT" default:"16"`
	MaxCallStackSize   int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	PreNavWait         time.Duration `envconfig:"SANDBOX_PRENAV_WAIT" default:"10s"`
}

// TemplateConfig holds template resolution configuration.
type TemplateConfig struct {
	CacheTTL       time.Duration `envconfig:"TEMPLATE_CACHE_TTL" default:"5m"`
	Store          string        `envconfig:"TEMPLATE_STORE" default:"sqlite"`
	SQLitePath     string        `envconfig:"TEMPLATE_SQLITE_PATH" default:"templates.db"`
	Dir            string        `envconfig:"TEMPLATE_DIR" default:"templates"`
	RemoteURL      string        `envconfig:"TEMPLATE_REMOTE_URL"`
	RemoteToken    string        `envconfig:"TEMPLATE_REMOTE_TOKEN"`
	RateLimitRPS   float64       `envconfig:"TEMPLATE_RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst int           `envconfig:"TEMPLATE_RATE_LIMIT_BURST" default:"0"`
}

// PreNavConfig holds the pre-navigation capture store configuration.
type PreNavConfig struct {
	RedisAddr     string        `envconfig:"PRENAV_REDIS_ADDR"`
	RedisPassword string        `envconfig:"PRENAV_REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"PRENAV_REDIS_DB" default:"0"`
	PollInterval  time.Duration `envconfig:"PRENAV_POLL_INTERVAL" default:"100ms"`
	TTL           time.Duration `envconfig:"PRENAV_TTL" default:"10m"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects limits that would disable a safety bound.
func (c *Config) Validate() error {
	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("SANDBOX_TIMEOUT must be positive, got %s", c.Sandbox.Timeout)
	}
	if c.Sandbox.PageCallBudget <= 0 {
		return fmt.Errorf("SANDBOX_PAGE_CALL_BUDGET must be positive, got %d", c.Sandbox.PageCallBudget)
	}
	if c.Sandbox.MaxConcurrent <= 0 {
		return fmt.Errorf("SANDBOX_MAX_CONCURRENT must be positive, got %d", c.Sandbox.MaxConcurrent)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("OPS_RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	}
	switch c.Template.Store {
	case "sqlite", "file", "remote", "memory":
	default:
		return fmt.Errorf("unknown TEMPLATE_STORE %q", c.Template.Store)
	}
	if c.Template.Store == "remote" && c.Template.RemoteURL == "" {
		return fmt.Errorf("TEMPLATE_REMOTE_URL is required for the remote store")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			IdleTTL:           10 * time.Minute,
		},
		Sandbox: SandboxConfig{
			Timeout:          60 * time.Second,
			PageCallBudget:   1000,
			MaxConcurrent:    16,
			MaxCallStackSize: 1024,
			PreNavWait:       10 * time.Second,
		},
		Template: TemplateConfig{
			CacheTTL:   5 * time.Minute,
			Store:      "sqlite",
			SQLitePath: "templates.db",
			Dir:        "templates",
		},
		PreNav: PreNavConfig{
			PollInterval: 100 * time.Millisecond,
			TTL:          10 * time.Minute,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
