package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"9090"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Per-call upstream timeouts: scraped storefronts and JSON APIs.
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	APITimeout  time.Duration `envconfig:"API_TIMEOUT" default:"15s"`

	CacheBackend    string `envconfig:"CACHE_BACKEND" default:"sqlite"`
	CacheDBPath     string `envconfig:"CACHE_DB_PATH" default:":memory:"`
	CacheTTLMinutes int    `envconfig:"CACHE_TTL_MINUTES" default:"10"`
	RedisURL        string `envconfig:"REDIS_URL"`

	RenderEnabled bool          `envconfig:"RENDER_ENABLED" default:"false"`
	RenderTimeout time.Duration `envconfig:"RENDER_TIMEOUT" default:"45s"`

	DefaultRegion         string `envconfig:"DEFAULT_REGION" default:"co"`
	MaxConcurrentSearches int    `envconfig:"MAX_CONCURRENT_SEARCHES" default:"3"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file loaded, using system environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "sqlite", "none":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("config: CACHE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheTTLMinutes <= 0 {
		return fmt.Errorf("config: CACHE_TTL_MINUTES must be positive, got %d", c.CacheTTLMinutes)
	}
	if c.MaxConcurrentSearches <= 0 {
		return fmt.Errorf("config: MAX_CONCURRENT_SEARCHES must be positive, got %d", c.MaxConcurrentSearches)
	}
	if len(c.DefaultRegion) != 2 {
		return fmt.Errorf("config: DEFAULT_REGION must be a two-letter code, got %q", c.DefaultRegion)
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}
