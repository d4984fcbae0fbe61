// Package config loads the YAML configuration shared by the client and
// the reference producer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/primebench/primebench/internal/stream"
)

type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Request stream.Params `yaml:"request"`
	Server  ServerConfig  `yaml:"server"`
}

type ClientConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Endpoint    string        `yaml:"endpoint"`
	Transport   string        `yaml:"transport"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	ExportDir   string        `yaml:"export_dir"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	ImageWidth  int           `yaml:"image_width"`
	ImageHeight int           `yaml:"image_height"`
}

type ServerConfig struct {
	Host                 string `yaml:"host"`
	Port                 int    `yaml:"port"`
	LogLevel             string `yaml:"log_level"`
	MaxConcurrentStreams int    `yaml:"max_concurrent_streams"`
	ProbablePrimeRounds  int    `yaml:"probable_prime_rounds"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:     "http://127.0.0.1:8000",
			Endpoint:    "/api/generate_prime",
			Transport:   stream.KindSSE,
			IdleTimeout: 60 * time.Second,
			ExportDir:   ".",
			LogFile:     DefaultLogFile(),
			LogLevel:    "info",
			ImageWidth:  1200,
			ImageHeight: 480,
		},
		Request: stream.Params{
			ItemSize:       100,
			IterationCount: 5,
		},
		Server: ServerConfig{
			Host:                 "127.0.0.1",
			Port:                 8000,
			LogLevel:             "info",
			MaxConcurrentStreams: 16,
			ProbablePrimeRounds:  20,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be corrected at run time.
func (c *Config) Validate() error {
	if err := c.Request.Validate(); err != nil {
		return fmt.Errorf("request: %w", err)
	}
	switch c.Client.Transport {
	case stream.KindSSE, stream.KindWebSocket:
	default:
		return fmt.Errorf("client.transport: unknown transport %q", c.Client.Transport)
	}
	if c.Client.IdleTimeout < 0 {
		return fmt.Errorf("client.idle_timeout: must not be negative")
	}
	if c.Client.ImageWidth <= 0 || c.Client.ImageHeight <= 0 {
		return fmt.Errorf("client.image_width/image_height: must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Server.MaxConcurrentStreams < 1 {
		return fmt.Errorf("server.max_concurrent_streams: must be at least 1")
	}
	if c.Server.ProbablePrimeRounds < 1 {
		return fmt.Errorf("server.probable_prime_rounds: must be at least 1")
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/primebench/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "primebench", "config.yaml")
}

// DefaultLogFile returns $XDG_STATE_HOME/primebench/primebench.log, falling
// back to ~/.local/state.
func DefaultLogFile() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "primebench", "primebench.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "primebench.log")
	}
	return filepath.Join(home, ".local", "state", "primebench", "primebench.log")
}
