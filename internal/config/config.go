// Package config loads aegis configuration from .aegis/config.yaml.
// Missing files are not an error: defaults apply, with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all aegis configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Memory    MemoryConfig    `yaml:"memory"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProviderConfig configures the completion provider adapter.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// MemoryConfig bounds the rolling memory.
type MemoryConfig struct {
	WindowSize   int `yaml:"window_size"`
	MaxSummaries int `yaml:"max_summaries"`
}

// ExecutionConfig configures the command execution pipeline.
type ExecutionConfig struct {
	DefaultTimeoutMs int64  `yaml:"default_timeout_ms"`
	StreamTimeoutMs  int64  `yaml:"stream_timeout_ms"`
	GracePeriodSec   int    `yaml:"grace_period_sec"`
	MaxOutputBytes   int64  `yaml:"max_output_bytes"`
	AuditLogPath     string `yaml:"audit_log_path"`
	AutoApprove      bool   `yaml:"auto_approve"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			Timeout:    "120s",
			MaxRetries: 3,
		},
		Memory: MemoryConfig{
			WindowSize:   21,
			MaxSummaries: 3,
		},
		Execution: ExecutionConfig{
			DefaultTimeoutMs: 60_000,
			StreamTimeoutMs:  300_000,
			GracePeriodSec:   5,
			MaxOutputBytes:   10 * 1024 * 1024,
			AuditLogPath:     filepath.Join(".aegis", "audit.jsonl"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads config from path, layering file values over defaults and
// environment overrides over both. A missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultPath is the conventional workspace config location.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".aegis", "config.yaml")
}

// applyEnv overlays environment-supplied secrets and endpoints.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AEGIS_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("AEGIS_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("AEGIS_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
}

func (c Config) validate() error {
	if c.Memory.WindowSize < 0 || c.Memory.MaxSummaries < 0 {
		return fmt.Errorf("memory bounds must be non-negative")
	}
	if c.Provider.Timeout != "" {
		if _, err := time.ParseDuration(c.Provider.Timeout); err != nil {
			return fmt.Errorf("invalid provider timeout %q: %w", c.Provider.Timeout, err)
		}
	}
	return nil
}

// ProviderTimeout parses the provider timeout, falling back to the
// default on absence.
func (c Config) ProviderTimeout() time.Duration {
	if c.Provider.Timeout == "" {
		return 120 * time.Second
	}
	d, err := time.ParseDuration(c.Provider.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}
