// Package config loads the dashboard configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"noise-dashboard/internal/manager"
)

// Config holds the full dashboard configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Map     MapConfig     `yaml:"map"`
	Plot    PlotConfig    `yaml:"plot"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`

	// Freshness bounds how old a location's last measurement may be for it
	// to display as sending data
	Freshness time.Duration `yaml:"freshness"`
}

// APIConfig configures the upstream measurement API
type APIConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// MapConfig configures the locations table and map view
type MapConfig struct {
	FilterActive bool `yaml:"filter_active"`
	Deduplicate  bool `yaml:"deduplicate"`
}

// PlotConfig configures the noise series views
type PlotConfig struct {
	FillGaps     bool `yaml:"fill_gaps"`
	LookbackDays int  `yaml:"lookback_days"`
}

// CacheConfig configures the data manager's slot cache
type CacheConfig struct {
	Backend   string        `yaml:"backend"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:     "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Map: MapConfig{
			FilterActive: true,
			Deduplicate:  true,
		},
		Plot: PlotConfig{
			FillGaps:     true,
			LookbackDays: 7,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Freshness: 5 * time.Hour,
	}
}

// Load reads the configuration file at path, layered over defaults and under
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays deployment-specific environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("NOISE_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("NOISE_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("NOISE_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("NOISE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("NOISE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration invariants
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Plot.LookbackDays <= 0 {
		return fmt.Errorf("plot.lookback_days must be positive")
	}
	if c.Freshness <= 0 {
		return fmt.Errorf("freshness must be positive")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}

	return nil
}

// ManagerOptions maps the configuration onto data manager options
func (c *Config) ManagerOptions() manager.Options {
	return manager.Options{
		FilterActive: c.Map.FilterActive,
		Deduplicate:  c.Map.Deduplicate,
		FillGaps:     c.Plot.FillGaps,
		LookbackDays: c.Plot.LookbackDays,
		Freshness:    c.Freshness,
		CacheTTL:     c.Cache.TTL,
	}
}
