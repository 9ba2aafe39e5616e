package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	PreserveRoot   bool           `yaml:"preserve_root"`
	Interactive    bool           `yaml:"interactive"`
	DryRun         bool           `yaml:"dry_run"`
	ProtectedPaths []string       `yaml:"protected_paths"`
	Progress       ProgressConfig `yaml:"progress"`
	Counter        CounterConfig  `yaml:"counter"`
	Listing        ListingConfig  `yaml:"listing"`
	Delete         DeleteConfig   `yaml:"delete"`
	Logging        LoggingConfig  `yaml:"logging"`
	Output         string         `yaml:"output"` // "auto", "summary", "json", "yaml", "none"
	ManifestFile   string         `yaml:"manifest_file"`
	MetricsFile    string         `yaml:"metrics_file"`
}

// ProgressConfig controls the status display
type ProgressConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RateWindow time.Duration `yaml:"rate_window"`
	Display    string        `yaml:"display"` // "auto", "tui", "plain", "none"
}

// CounterConfig controls the background estimate
type CounterConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"`
}

// ListingConfig controls directory reads
type ListingConfig struct {
	SortThreshold int `yaml:"sort_threshold"`
	BatchSize     int `yaml:"batch_size"`
}

// DeleteConfig controls the delete primitive
type DeleteConfig struct {
	RetryDelays []time.Duration `yaml:"retry_delays"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var (
	displayModes = []string{"auto", "tui", "plain", "none"}
	outputModes  = []string{"auto", "summary", "json", "yaml", "none"}
	logLevels    = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
)

// Load loads configuration from a file. Keys missing from the file keep
// their default values.
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Progress.Interval <= 0 {
		return fmt.Errorf("progress interval must be > 0")
	}
	if c.Progress.RateWindow <= 0 {
		return fmt.Errorf("progress rate window must be > 0")
	}
	if c.Progress.RateWindow < c.Progress.Interval {
		return fmt.Errorf("progress rate window (%s) must not be shorter than the interval (%s)",
			c.Progress.RateWindow, c.Progress.Interval)
	}
	if !slices.Contains(displayModes, c.Progress.Display) {
		return fmt.Errorf("unknown display mode %q", c.Progress.Display)
	}

	if c.Counter.Workers <= 0 {
		return fmt.Errorf("counter workers must be > 0")
	}
	if c.Listing.SortThreshold < 0 {
		return fmt.Errorf("listing sort threshold must be >= 0")
	}
	if c.Listing.BatchSize <= 0 {
		return fmt.Errorf("listing batch size must be > 0")
	}

	for _, d := range c.Delete.RetryDelays {
		if d < 0 {
			return fmt.Errorf("retry delay must be >= 0: %s", d)
		}
	}

	if !slices.Contains(outputModes, c.Output) {
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	// Validate protected paths are absolute
	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	return nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", "rm-rfp")
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return "", fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(GetExampleConfig()), 0644); err != nil {
			return "", fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return configPath, nil
}
