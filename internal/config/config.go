// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from flags, environment variables or .env file.
// Configuration priority: flags > environment variables > .env file > defaults.
type Config struct {
	EvalAddr        string // Base URL of the flag evaluation service
	IndexAddr       string // Base URL of the search indexer receiving evaluation results
	Iterations      int    // Iterations to run; 0 runs until interrupted
	Seed            int64  // Payload generator seed; 0 seeds from the clock
	LogLevel        string // zerolog level for diagnostics on stderr
	LogFormat       string // console or json
	MetricsAddr     string // Metrics server bind address; empty disables it
	MockEvalAddr    string // Bind address of the mock evaluation service
	MockIndexAddr   string // Bind address of the mock indexer
	MockRolloutSalt string // Salt the mock uses to bucket entities into variants
}

// flagKeys maps command line flag names to their configuration keys.
var flagKeys = map[string]string{
	"eval-addr":    "LOADGEN_EVAL_ADDR",
	"index-addr":   "LOADGEN_INDEX_ADDR",
	"iterations":   "LOADGEN_ITERATIONS",
	"seed":         "LOADGEN_SEED",
	"log-level":    "LOADGEN_LOG_LEVEL",
	"log-format":   "LOADGEN_LOG_FORMAT",
	"metrics-addr": "METRICS_ADDR",
	"eval-listen":  "MOCK_HTTP_ADDR",
	"index-listen": "MOCK_INDEX_ADDR",
	"salt":         "ROLLOUT_SALT",
}

// Option adjusts the viper instance before values are read.
type Option func(*viper.Viper)

// WithTargets replaces the built-in target defaults, e.g. with a CLI profile.
// Environment variables and flags still take precedence. Empty values are ignored.
func WithTargets(evalAddr, indexAddr string) Option {
	return func(v *viper.Viper) {
		if evalAddr != "" {
			v.SetDefault("LOADGEN_EVAL_ADDR", evalAddr)
		}
		if indexAddr != "" {
			v.SetDefault("LOADGEN_INDEX_ADDR", indexAddr)
		}
	}
}

// Load reads configuration from environment variables and .env file (if present),
// then applies any flags in fs that were set explicitly. fs may be nil.
//
// Load does not validate; call Validate before using the result.
func Load(fs *pflag.FlagSet, opts ...Option) (*Config, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = viperInstance.ReadInConfig()    // Ignore error - .env is optional
	viperInstance.AutomaticEnv()        // Read from environment variables

	setConfigDefaults(viperInstance)
	for _, opt := range opts {
		opt(viperInstance)
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := viperInstance.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	return &Config{
		EvalAddr:        viperInstance.GetString("LOADGEN_EVAL_ADDR"),
		IndexAddr:       viperInstance.GetString("LOADGEN_INDEX_ADDR"),
		Iterations:      viperInstance.GetInt("LOADGEN_ITERATIONS"),
		Seed:            viperInstance.GetInt64("LOADGEN_SEED"),
		LogLevel:        viperInstance.GetString("LOADGEN_LOG_LEVEL"),
		LogFormat:       viperInstance.GetString("LOADGEN_LOG_FORMAT"),
		MetricsAddr:     viperInstance.GetString("METRICS_ADDR"),
		MockEvalAddr:    viperInstance.GetString("MOCK_HTTP_ADDR"),
		MockIndexAddr:   viperInstance.GetString("MOCK_INDEX_ADDR"),
		MockRolloutSalt: viperInstance.GetString("ROLLOUT_SALT"),
	}, nil
}

// setConfigDefaults points at a local flagr on :18000 and elasticsearch on :9200.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("LOADGEN_EVAL_ADDR", "http://localhost:18000")
	v.SetDefault("LOADGEN_INDEX_ADDR", "http://localhost:9200")
	v.SetDefault("LOADGEN_ITERATIONS", 0)
	v.SetDefault("LOADGEN_SEED", 0)
	v.SetDefault("LOADGEN_LOG_LEVEL", "info")
	v.SetDefault("LOADGEN_LOG_FORMAT", "console")
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("MOCK_HTTP_ADDR", ":18000")
	v.SetDefault("MOCK_INDEX_ADDR", ":9200")
	v.SetDefault("ROLLOUT_SALT", "flagr-loadgen")
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks the settings the load generator needs.
//
// Validation Rules:
//  1. EvalAddr and IndexAddr must be http(s) URLs or bare host:port
//  2. Iterations must not be negative
//  3. LogLevel must be a zerolog level
//  4. LogFormat must be "console" or "json"
//
// Returns the first failure as a ValidationError.
func (c *Config) Validate() error {
	if err := validateAddr("LOADGEN_EVAL_ADDR", c.EvalAddr); err != nil {
		return err
	}
	if err := validateAddr("LOADGEN_INDEX_ADDR", c.IndexAddr); err != nil {
		return err
	}

	if c.Iterations < 0 {
		return ValidationError{
			Field:   "LOADGEN_ITERATIONS",
			Message: fmt.Sprintf("must be >= 0, got %d", c.Iterations),
		}
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		return ValidationError{
			Field:   "LOADGEN_LOG_LEVEL",
			Message: fmt.Sprintf("unknown log level '%s'", c.LogLevel),
		}
	}

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return ValidationError{
			Field:   "LOADGEN_LOG_FORMAT",
			Message: fmt.Sprintf("must be 'console' or 'json', got '%s'", c.LogFormat),
		}
	}

	return nil
}

func validateAddr(field, raw string) error {
	if raw == "" {
		return ValidationError{Field: field, Message: "address cannot be empty"}
	}
	s := raw
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ValidationError{Field: field, Message: fmt.Sprintf("invalid address '%s': %v", raw, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: field, Message: fmt.Sprintf("scheme must be http or https, got '%s'", u.Scheme)}
	}
	if u.Hostname() == "" {
		return ValidationError{Field: field, Message: fmt.Sprintf("address '%s' has no host", raw)}
	}
	return nil
}
