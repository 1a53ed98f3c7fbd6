package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.URL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 7, cfg.Plot.LookbackDays)
	assert.Equal(t, 5*time.Hour, cfg.Freshness)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.True(t, cfg.Map.FilterActive)
	assert.True(t, cfg.Map.Deduplicate)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://noise.example.com/api
  timeout: 10s
map:
  filter_active: false
plot:
  lookback_days: 14
freshness: 2h
cache:
  backend: redis
  redis_addr: localhost:6379
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://noise.example.com/api", cfg.API.URL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.Map.FilterActive)
	assert.True(t, cfg.Map.Deduplicate, "unset keys keep their defaults")
	assert.Equal(t, 14, cfg.Plot.LookbackDays)
	assert.Equal(t, 2*time.Hour, cfg.Freshness)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://noise.example.com/api
`)

	t.Setenv("NOISE_API_URL", "https://staging.example.com/api")
	t.Setenv("NOISE_API_TOKEN", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com/api", cfg.API.URL)
	assert.Equal(t, "s3cret", cfg.API.Token)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing url", mutate: func(c *Config) { c.API.URL = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: true},
		{name: "zero lookback", mutate: func(c *Config) { c.Plot.LookbackDays = 0 }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Cache.Backend = "redis" }, wantErr: true},
		{
			name: "redis with addr",
			mutate: func(c *Config) {
				c.Cache.Backend = "redis"
				c.Cache.RedisAddr = "localhost:6379"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManagerOptions(t *testing.T) {
	cfg := Default()
	cfg.Plot.LookbackDays = 14
	cfg.Freshness = 2 * time.Hour

	opts := cfg.ManagerOptions()
	assert.Equal(t, 14, opts.LookbackDays)
	assert.Equal(t, 2*time.Hour, opts.Freshness)
	assert.True(t, opts.FilterActive)
	assert.True(t, opts.FillGaps)
}
