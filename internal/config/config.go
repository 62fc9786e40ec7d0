// Package config provides application configuration management.
// Rule thresholds live in rule override documents, not here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"cloud-waste/core/engine"
	"cloud-waste/core/types"
	"cloud-waste/internal/errors"
	"cloud-waste/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. CLOUDWASTE_ENGINE_CONCURRENCY
const EnvPrefix = "CLOUDWASTE"

// Config is the main application configuration
type Config struct {
	// Logging contains logging configuration
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`

	// Engine contains scan engine tuning
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`

	// Pricing contains price table settings
	Pricing PricingConfig `mapstructure:"pricing" yaml:"pricing"`

	// Output contains report settings
	Output OutputConfig `mapstructure:"output" yaml:"output"`
}

// EngineConfig contains scan engine settings
type EngineConfig struct {
	// Concurrency is the number of resources evaluated in parallel
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// ScanTimeout bounds the whole scan; completed resources are kept
	ScanTimeout time.Duration `mapstructure:"scan_timeout" yaml:"scan_timeout"`

	// CallTimeout bounds a single metrics call
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`

	// MaxAttempts is the number of tries per metrics query
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`

	// MaxInFlight caps concurrent metrics calls
	MaxInFlight int `mapstructure:"max_in_flight" yaml:"max_in_flight"`

	// RequestsPerSecond caps the metrics call rate; zero means unlimited
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// SkipMetrics runs attribute rules only
	SkipMetrics bool `mapstructure:"skip_metrics" yaml:"skip_metrics"`
}

// Options maps engine settings onto scan options
func (c EngineConfig) Options() engine.Options {
	opts := engine.DefaultOptions()
	opts.Concurrency = c.Concurrency
	opts.ScanTimeout = c.ScanTimeout
	opts.Retry.MaxAttempts = c.MaxAttempts
	opts.Retry.InitialBackoff = c.InitialBackoff
	opts.Retry.MaxBackoff = c.MaxBackoff
	opts.CallTimeout = c.CallTimeout
	opts.MaxInFlight = c.MaxInFlight
	opts.RequestsPerSecond = c.RequestsPerSecond
	opts.SkipMetrics = c.SkipMetrics
	return opts
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// TablePath replaces the embedded price table when set
	TablePath string `mapstructure:"table_path" yaml:"table_path"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// Format is table, json or markdown
	Format string `mapstructure:"format" yaml:"format"`

	// MinMonthlyCost drops resources whose primary finding costs less
	MinMonthlyCost float64 `mapstructure:"min_monthly_cost" yaml:"min_monthly_cost"`

	// MinConfidence drops resources whose primary finding grades lower
	MinConfidence string `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// Output formats
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Engine: EngineConfig{
			Concurrency:    8,
			ScanTimeout:    10 * time.Minute,
			CallTimeout:    30 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			MaxInFlight:    16,
		},
		Output: OutputConfig{
			Format:        FormatTable,
			MinConfidence: string(types.ConfidenceLow),
		},
	}
}

// setDefaults registers every key so that env overrides apply even when the
// file does not mention them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.development", d.Logging.Development)

	v.SetDefault("engine.concurrency", d.Engine.Concurrency)
	v.SetDefault("engine.scan_timeout", d.Engine.ScanTimeout)
	v.SetDefault("engine.call_timeout", d.Engine.CallTimeout)
	v.SetDefault("engine.max_attempts", d.Engine.MaxAttempts)
	v.SetDefault("engine.initial_backoff", d.Engine.InitialBackoff)
	v.SetDefault("engine.max_backoff", d.Engine.MaxBackoff)
	v.SetDefault("engine.max_in_flight", d.Engine.MaxInFlight)
	v.SetDefault("engine.requests_per_second", d.Engine.RequestsPerSecond)
	v.SetDefault("engine.skip_metrics", d.Engine.SkipMetrics)

	v.SetDefault("pricing.table_path", d.Pricing.TablePath)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.min_monthly_cost", d.Output.MinMonthlyCost)
	v.SetDefault("output.min_confidence", d.Output.MinConfidence)
}

// Load reads configuration from path, falling back to defaults when path is
// empty. CLOUDWASTE_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.TypeConfig, "read config file "+path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.Engine.Concurrency < 1:
		return errors.Newf(errors.TypeConfig, "engine.concurrency must be at least 1, got %d", c.Engine.Concurrency)
	case c.Engine.MaxAttempts < 1:
		return errors.Newf(errors.TypeConfig, "engine.max_attempts must be at least 1, got %d", c.Engine.MaxAttempts)
	case c.Engine.ScanTimeout < 0 || c.Engine.CallTimeout < 0:
		return errors.New(errors.TypeConfig, "engine timeouts must not be negative")
	case c.Engine.RequestsPerSecond < 0:
		return errors.New(errors.TypeConfig, "engine.requests_per_second must not be negative")
	case c.Output.MinMonthlyCost < 0:
		return errors.New(errors.TypeConfig, "output.min_monthly_cost must not be negative")
	}
	switch c.Output.Format {
	case FormatTable, FormatJSON, FormatMarkdown:
	default:
		return errors.Newf(errors.TypeConfig, "unknown output format %q", c.Output.Format)
	}
	if _, err := types.ParseConfidence(c.Output.MinConfidence); err != nil {
		return errors.Wrap(errors.TypeConfig, "output.min_confidence", err)
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
