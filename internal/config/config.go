// Package config loads the TOML-driven configuration described in
// SPEC_FULL.md §6.4, merging multiple files in the teacher's documented
// order (default -> file1 -> file2 -> ... -> CLI overrides).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ServerConfig configures the HTTP ingress listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// WorkerConfig configures the worker fleet.
type WorkerConfig struct {
	MaxConcurrentWorkers      int  `toml:"max_concurrent_workers"`
	PollIntervalSeconds       int  `toml:"poll_interval_seconds"`
	StallCheckIntervalSeconds int  `toml:"stall_check_interval_seconds"`
	MaxProcessingMinutes      int  `toml:"max_processing_minutes"`
	Active                    bool `toml:"active"`
}

// StorageConfig configures the durable job/batch store and artifact layout.
type StorageConfig struct {
	BadgerDir    string `toml:"badger_dir"`
	ArtifactsDir string `toml:"artifacts_dir"`
}

// WebhookConfig holds outbound webhook call timeouts. webhook.Dispatcher does
// not read these values; it uses fixed 15s (progress) and 30s (terminal)
// timeouts.
type WebhookConfig struct {
	ProgressTimeoutSeconds int `toml:"progress_timeout_seconds"`
	TerminalTimeoutSeconds int `toml:"terminal_timeout_seconds"`
}

// LoggingConfig configures arbor's log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ScheduleEntry registers a recurring batch submission
// (SPEC_FULL.md Domain Stack / internal/schedule).
type ScheduleEntry struct {
	Name           string                 `toml:"name"`
	CronExpression string                 `toml:"cron"`
	JobType        string                 `toml:"job_type"`
	Parameters     map[string]interface{} `toml:"parameters"`
}

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig    `toml:"server"`
	Worker   WorkerConfig    `toml:"worker"`
	Storage  StorageConfig   `toml:"storage"`
	Webhook  WebhookConfig   `toml:"webhook"`
	Logging  LoggingConfig   `toml:"logging"`
	Schedule []ScheduleEntry `toml:"schedule"`
}

// Default returns the built-in configuration, matching NewDefaultConfig's
// role of providing a reasonable development default before any file or
// CLI override is applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Worker: WorkerConfig{
			MaxConcurrentWorkers:      3,
			PollIntervalSeconds:       5,
			StallCheckIntervalSeconds: 60,
			MaxProcessingMinutes:      10,
			Active:                    true,
		},
		Storage: StorageConfig{
			BadgerDir:    "./data/jobs.badger",
			ArtifactsDir: "./data/artifacts",
		},
		Webhook: WebhookConfig{
			ProgressTimeoutSeconds: 15,
			TerminalTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFiles merges zero or more TOML files on top of Default, in order:
// later files override earlier ones. Empty paths are skipped; a path that
// cannot be read or parsed is returned as an error.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := Default()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies ORCHESTRATOR_-prefixed environment variables,
// the highest-priority override short of explicit CLI flags, matching the
// teacher's applyEnvOverrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ORCHESTRATOR_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("ORCHESTRATOR_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ORCHESTRATOR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ORCHESTRATOR_STORAGE_BADGER_DIR"); v != "" {
		cfg.Storage.BadgerDir = v
	}
}

// ApplyFlagOverrides applies CLI flag values, the highest-priority override,
// matching the teacher's ApplyFlagOverrides.
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// PollInterval returns Worker.PollIntervalSeconds as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Worker.PollIntervalSeconds) * time.Second
}

// StallCheckInterval returns Worker.StallCheckIntervalSeconds as a time.Duration.
func (c *Config) StallCheckInterval() time.Duration {
	return time.Duration(c.Worker.StallCheckIntervalSeconds) * time.Second
}

// MaxProcessingTime returns Worker.MaxProcessingMinutes as a time.Duration.
func (c *Config) MaxProcessingTime() time.Duration {
	return time.Duration(c.Worker.MaxProcessingMinutes) * time.Minute
}
