package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primebench/primebench/internal/stream"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
client:
  base_url: "http://producer:9000"
  transport: ws
  idle_timeout: 15s
request:
  item_size: 1500
  iteration_count: 100
server:
  port: 9090
  max_concurrent_streams: 4
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://producer:9000", cfg.Client.BaseURL)
	assert.Equal(t, stream.KindWebSocket, cfg.Client.Transport)
	assert.Equal(t, 15*time.Second, cfg.Client.IdleTimeout)
	assert.Equal(t, stream.Params{ItemSize: 1500, IterationCount: 100}, cfg.Request)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.MaxConcurrentStreams)

	// Unset keys keep their defaults.
	assert.Equal(t, "/api/generate_prime", cfg.Client.Endpoint)
	assert.Equal(t, 1200, cfg.Client.ImageWidth)
	assert.Equal(t, 20, cfg.Server.ProbablePrimeRounds)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("client: [unterminated"), 0o644))

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"item size too small", func(c *Config) { c.Request.ItemSize = 0 }},
		{"iteration count too large", func(c *Config) { c.Request.IterationCount = 101 }},
		{"unknown transport", func(c *Config) { c.Client.Transport = "grpc" }},
		{"negative idle timeout", func(c *Config) { c.Client.IdleTimeout = -time.Second }},
		{"zero image width", func(c *Config) { c.Client.ImageWidth = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no streams", func(c *Config) { c.Server.MaxConcurrentStreams = 0 }},
		{"no rounds", func(c *Config) { c.Server.ProbablePrimeRounds = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultLogFileHonoursXDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, "/tmp/state/primebench/primebench.log", DefaultLogFile())
}
