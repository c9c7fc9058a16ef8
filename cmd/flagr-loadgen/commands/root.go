package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagr-loadgen/internal/cli"
	"github.com/TimurManjosov/flagr-loadgen/internal/config"
	"github.com/TimurManjosov/flagr-loadgen/internal/logging"
)

var (
	// Global flags
	configPath string
	profile    string
	format     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flagr-loadgen",
	Short: "Synthetic evaluation traffic for a flagr service",
	Long: `flagr-loadgen sends randomized flag evaluation requests to a flagr service,
prints the latency and body of every answer, and forwards each answer
unchanged to a search indexer.

Examples:
  flagr-loadgen run
  flagr-loadgen run --eval-addr http://flagr:18000 --index-addr http://es:9200
  flagr-loadgen run --iterations 1000 --summary
  flagr-loadgen payload --count 5 --format yaml
  flagr-loadgen mock`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "CLI config file (default ~/.flagr-loadgen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Target profile from the config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format for summaries (table, json, yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Diagnostics level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Diagnostics format (console, json)")
}

// resolveConfigPath returns --config or the default path; "" if neither is usable.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	path, err := cli.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

// loadConfig merges the selected profile, environment and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var opts []config.Option

	if path := resolveConfigPath(); path != "" {
		file, err := cli.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
		p, _, err := file.GetProfile(profile)
		switch {
		case err == nil:
			opts = append(opts, config.WithTargets(p.EvalAddr, p.IndexAddr))
		case profile != "":
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	} else if profile != "" {
		return nil, fmt.Errorf("configuration error: no config file for profile '%s'", profile)
	}

	cfg, err := config.Load(cmd.Flags(), opts...)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
}
