package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server contains HTTP API configuration.
type Server struct {
	Bind         string   `toml:"bind"`
	APIToken     string   `toml:"api_token"`
	AllowOrigins []string `toml:"allow_origins"`
}

// Kai contains configuration for the kai-style partner score APIs.
type Kai struct {
	FLOBaseURL string `toml:"flo_base_url"`
	FLOToken   string `toml:"flo_token"`
	EAGBaseURL string `toml:"eag_base_url"`
	EAGToken   string `toml:"eag_token"`
	// RequestTimeout is in seconds.
	RequestTimeout int `toml:"request_timeout"`
}

// Events contains configuration for redis event publishing. Publishing is
// disabled when Addr is empty.
type Events struct {
	Addr    string `toml:"addr"`
	Channel string `toml:"channel"`
}

// Import contains tuning for the import pipeline.
type Import struct {
	// Workers bounds concurrent record conversion within one batch.
	Workers int `toml:"workers"`
	// JobWorkers bounds concurrently running import jobs.
	JobWorkers int `toml:"job_workers"`
	// SessionGapMinutes overrides the session clustering gap. Zero means
	// the standard two hours.
	SessionGapMinutes int `toml:"session_gap_minutes"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Server  Server  `toml:"server"`
	Kai     Kai     `toml:"kai"`
	Events  Events  `toml:"events"`
	Import  Import  `toml:"import"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "encore", "config.toml")
	}
	return "config.toml"
}

// Load reads the config file at path, or writes the sample and returns
// defaults when the file does not exist yet.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if writeErr := writeSample(path); writeErr != nil {
			return nil, writeErr
		}
		cfg := Default()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func writeSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the sqlite database location for the record store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "encore.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "encored.lock")
}
