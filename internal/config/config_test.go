package config

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
)

var allKeys = []string{
	"LOADGEN_EVAL_ADDR", "LOADGEN_INDEX_ADDR", "LOADGEN_ITERATIONS", "LOADGEN_SEED",
	"LOADGEN_LOG_LEVEL", "LOADGEN_LOG_FORMAT", "METRICS_ADDR", "MOCK_HTTP_ADDR",
	"MOCK_INDEX_ADDR", "ROLLOUT_SALT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.EvalAddr != "http://localhost:18000" {
		t.Errorf("Expected EvalAddr='http://localhost:18000', got '%s'", cfg.EvalAddr)
	}
	if cfg.IndexAddr != "http://localhost:9200" {
		t.Errorf("Expected IndexAddr='http://localhost:9200', got '%s'", cfg.IndexAddr)
	}
	if cfg.Iterations != 0 {
		t.Errorf("Expected Iterations=0, got %d", cfg.Iterations)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel='info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("Expected LogFormat='console', got '%s'", cfg.LogFormat)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("Expected metrics disabled, got '%s'", cfg.MetricsAddr)
	}
	if cfg.MockEvalAddr != ":18000" || cfg.MockIndexAddr != ":9200" {
		t.Errorf("Unexpected mock addresses: %s %s", cfg.MockEvalAddr, cfg.MockIndexAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOADGEN_EVAL_ADDR", "http://flagr:18000")
	t.Setenv("LOADGEN_INDEX_ADDR", "es:9200")
	t.Setenv("LOADGEN_ITERATIONS", "25")
	t.Setenv("LOADGEN_SEED", "1234")
	t.Setenv("METRICS_ADDR", ":7777")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.EvalAddr != "http://flagr:18000" {
		t.Errorf("Expected EvalAddr='http://flagr:18000', got '%s'", cfg.EvalAddr)
	}
	if cfg.IndexAddr != "es:9200" {
		t.Errorf("Expected IndexAddr='es:9200', got '%s'", cfg.IndexAddr)
	}
	if cfg.Iterations != 25 {
		t.Errorf("Expected Iterations=25, got %d", cfg.Iterations)
	}
	if cfg.Seed != 1234 {
		t.Errorf("Expected Seed=1234, got %d", cfg.Seed)
	}
	if cfg.MetricsAddr != ":7777" {
		t.Errorf("Expected MetricsAddr=':7777', got '%s'", cfg.MetricsAddr)
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOADGEN_EVAL_ADDR", "http://from-env:1")
	t.Setenv("LOADGEN_INDEX_ADDR", "http://from-env:2")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("eval-addr", "http://localhost:18000", "")
	fs.String("index-addr", "http://localhost:9200", "")
	fs.Int("iterations", 0, "")
	if err := fs.Parse([]string{"--eval-addr", "http://from-flag:3", "--iterations", "7"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.EvalAddr != "http://from-flag:3" {
		t.Errorf("Expected flag to win, got '%s'", cfg.EvalAddr)
	}
	if cfg.IndexAddr != "http://from-env:2" {
		t.Errorf("Expected env to win over unset flag, got '%s'", cfg.IndexAddr)
	}
	if cfg.Iterations != 7 {
		t.Errorf("Expected Iterations=7, got %d", cfg.Iterations)
	}
}

func TestLoad_WithTargetsBelowEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOADGEN_INDEX_ADDR", "http://from-env:9200")

	cfg, err := Load(nil, WithTargets("http://profile:18000", "http://profile:9200"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.EvalAddr != "http://profile:18000" {
		t.Errorf("Expected profile EvalAddr, got '%s'", cfg.EvalAddr)
	}
	if cfg.IndexAddr != "http://from-env:9200" {
		t.Errorf("Expected env IndexAddr, got '%s'", cfg.IndexAddr)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		EvalAddr:  "http://localhost:18000",
		IndexAddr: "localhost:9200",
		LogLevel:  "info",
		LogFormat: "console",
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"empty eval addr", func(c *Config) { c.EvalAddr = "" }, "LOADGEN_EVAL_ADDR"},
		{"bad scheme", func(c *Config) { c.EvalAddr = "ftp://flagr" }, "LOADGEN_EVAL_ADDR"},
		{"no host", func(c *Config) { c.IndexAddr = "http://" }, "LOADGEN_INDEX_ADDR"},
		{"negative iterations", func(c *Config) { c.Iterations = -1 }, "LOADGEN_ITERATIONS"},
		{"unknown level", func(c *Config) { c.LogLevel = "chatty" }, "LOADGEN_LOG_LEVEL"},
		{"empty level", func(c *Config) { c.LogLevel = "" }, "LOADGEN_LOG_LEVEL"},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }, "LOADGEN_LOG_FORMAT"},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Field: "LOADGEN_ITERATIONS", Message: "must be >= 0, got -1"}
	want := "config validation failed [LOADGEN_ITERATIONS]: must be >= 0, got -1"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
