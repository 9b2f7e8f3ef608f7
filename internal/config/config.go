// Package config loads the YAML configuration of the ordex CLI.
//
// Every field has a default (see Default); a file only needs the fields
// it changes. Unknown fields are rejected so that typos surface as errors
// instead of silently falling back to defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Executor names accepted by RouterConfig.Executor.
const (
	ExecutorInline    = "inline"
	ExecutorGoroutine = "goroutine"
	ExecutorSerial    = "serial"
)

// Log formats accepted by LogConfig.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	validLevels    = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{FormatText, FormatJSON}
	validExecutors = []string{ExecutorInline, ExecutorGoroutine, ExecutorSerial}
)

// Config is the root configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Router RouterConfig `yaml:"router"`
	Bucket BucketConfig `yaml:"bucket"`
	Index  IndexConfig  `yaml:"index"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error (case-insensitive).
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// RouterConfig configures notification routers.
type RouterConfig struct {
	// Executor is the default executor: inline, goroutine or serial.
	Executor string `yaml:"executor"`

	// Held creates routers with delivery held.
	Held bool `yaml:"held"`
}

// BucketConfig configures index buckets.
type BucketConfig struct {
	PageSize     int     `yaml:"page_size"`
	CompactMin   int     `yaml:"compact_min"`
	CompactRatio float64 `yaml:"compact_ratio"`
}

// IndexConfig configures secondary indexes.
type IndexConfig struct {
	// Unique rejects entities equal to an indexed one.
	Unique bool `yaml:"unique"`

	// KeyField is the entity field the index key is read from.
	KeyField string `yaml:"key_field"`

	// IdentityField, when set, makes entities equal if this field is
	// equal. Otherwise entities are compared by all their fields.
	IdentityField string `yaml:"identity_field,omitempty"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
		Router: RouterConfig{
			Executor: ExecutorInline,
		},
		Bucket: BucketConfig{
			PageSize:     32,
			CompactMin:   64,
			CompactRatio: 1.0,
		},
		Index: IndexConfig{
			KeyField: "key",
		},
	}
}

// Load reads the configuration file at path. An empty path returns
// Default().
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a configuration document over Default() and validates it.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level %q: must be one of %v", c.Log.Level, validLevels)
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("log.format %q: must be one of %v", c.Log.Format, validFormats)
	}
	if !slices.Contains(validExecutors, c.Router.Executor) {
		return fmt.Errorf("router.executor %q: must be one of %v", c.Router.Executor, validExecutors)
	}
	if c.Bucket.PageSize < 1 {
		return fmt.Errorf("bucket.page_size must be positive, got %d", c.Bucket.PageSize)
	}
	if c.Bucket.CompactRatio < 0 {
		return fmt.Errorf("bucket.compact_ratio must not be negative, got %g", c.Bucket.CompactRatio)
	}
	if c.Index.KeyField == "" {
		return fmt.Errorf("index.key_field is required")
	}
	return nil
}
