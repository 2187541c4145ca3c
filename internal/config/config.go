package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Project     string    `yaml:"project"`
	Input       string    `yaml:"input"`
	Output      string    `yaml:"output"`
	Migration   Migration `yaml:"migration"`
	MetricsAddr string    `yaml:"metrics_addr"`
	LogLevel    string    `yaml:"log_level"`
}

// Migration represents migration-specific configuration.
type Migration struct {
	TerminalClass  string  `yaml:"terminal_class"`
	Concurrency    int     `yaml:"concurrency"`
	Retries        int     `yaml:"retries"`
	RetryBackoffMs int     `yaml:"retry_backoff_ms"`
	RetryJitter    float64 `yaml:"retry_jitter"`
	CallTimeoutMs  int     `yaml:"call_timeout_ms"`
	Checkpoint     string  `yaml:"checkpoint"`
	Resume         bool    `yaml:"resume"`
	SkipMigrated   bool    `yaml:"skip_migrated"`
	DryRun         bool    `yaml:"dry_run"`
	ShowProgress   bool    `yaml:"show_progress"`
}

// Load loads configuration from file and command line flags. Flags win over
// the file; the file wins over defaults.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Migration: Migration{
			TerminalClass:  "ARCHIVE",
			Concurrency:    20,
			Retries:        5,
			RetryBackoffMs: 1000,
			RetryJitter:    0.2,
			CallTimeoutMs:  30000,
			Checkpoint:     "./checkpoint.db",
			SkipMigrated:   true,
			ShowProgress:   true,
		},
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags.Changed("project") {
		cfg.Project, _ = flags.GetString("project")
	}
	if flags.Changed("input") {
		cfg.Input, _ = flags.GetString("input")
	}
	if flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if flags.Changed("terminal-class") {
		cfg.Migration.TerminalClass, _ = flags.GetString("terminal-class")
	}
	if flags.Changed("concurrency") {
		cfg.Migration.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("retries") {
		cfg.Migration.Retries, _ = flags.GetInt("retries")
	}
	if flags.Changed("retry-backoff-ms") {
		cfg.Migration.RetryBackoffMs, _ = flags.GetInt("retry-backoff-ms")
	}
	if flags.Changed("retry-jitter") {
		cfg.Migration.RetryJitter, _ = flags.GetFloat64("retry-jitter")
	}
	if flags.Changed("call-timeout-ms") {
		cfg.Migration.CallTimeoutMs, _ = flags.GetInt("call-timeout-ms")
	}
	if flags.Changed("checkpoint") {
		cfg.Migration.Checkpoint, _ = flags.GetString("checkpoint")
	}
	if flags.Changed("resume") {
		cfg.Migration.Resume, _ = flags.GetBool("resume")
	}
	if flags.Changed("skip-migrated") {
		cfg.Migration.SkipMigrated, _ = flags.GetBool("skip-migrated")
	}
	if flags.Changed("dry-run") {
		cfg.Migration.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("show-progress") {
		cfg.Migration.ShowProgress, _ = flags.GetBool("show-progress")
	}

	return nil
}

// applyDefaults fills in values derived from other settings.
func (c *Config) applyDefaults() {
	if c.Output == "" && c.Input != "" {
		ext := filepath.Ext(c.Input)
		c.Output = strings.TrimSuffix(c.Input, ext) + "_output.csv"
	}
}

func (c *Config) validate() error {
	if c.Input == "" {
		return fmt.Errorf("input file is required")
	}

	switch c.Migration.TerminalClass {
	case "ARCHIVE", "NEARLINE":
	default:
		return fmt.Errorf("terminal class must be ARCHIVE or NEARLINE, got %q", c.Migration.TerminalClass)
	}

	if c.Migration.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if c.Migration.Retries <= 0 {
		return fmt.Errorf("retries must be positive")
	}

	if c.Migration.RetryBackoffMs < 0 {
		return fmt.Errorf("retry backoff must not be negative")
	}

	if c.Migration.RetryJitter < 0 || c.Migration.RetryJitter >= 1 {
		return fmt.Errorf("retry jitter must be in [0, 1)")
	}

	return nil
}
