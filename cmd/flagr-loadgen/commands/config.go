package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagr-loadgen/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage target profiles",
	Long:  `Manage the flagr-loadgen CLI configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a default configuration file at ~/.flagr-loadgen/config.yaml

Example:
  flagr-loadgen config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		if path == "" {
			return fmt.Errorf("cannot determine config path, pass --config")
		}
		if err := cli.InitConfig(path); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(resolveConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Default Profile: %s\n\n", cfg.DefaultProfile)
		fmt.Fprintln(out, "Profiles:")
		for name, p := range cfg.Profiles {
			fmt.Fprintf(out, "  %s:\n", name)
			fmt.Fprintf(out, "    eval_addr: %s\n", p.EvalAddr)
			fmt.Fprintf(out, "    index_addr: %s\n", p.IndexAddr)
		}

		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <profile.key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  flagr-loadgen config get local.eval_addr
  flagr-loadgen config get compose.index_addr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(resolveConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitProfileKey(args[0])
		if err != nil {
			return err
		}

		p, ok := cfg.Profiles[name]
		if !ok {
			return fmt.Errorf("profile '%s' not found", name)
		}

		switch key {
		case "eval_addr":
			fmt.Fprintln(cmd.OutOrStdout(), p.EvalAddr)
		case "index_addr":
			fmt.Fprintln(cmd.OutOrStdout(), p.IndexAddr)
		default:
			return fmt.Errorf("unknown key '%s', valid keys: eval_addr, index_addr", key)
		}

		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <profile.key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Examples:
  flagr-loadgen config set staging.eval_addr http://flagr.staging:18000
  flagr-loadgen config set staging.index_addr http://es.staging:9200`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		cfg, err := cli.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitProfileKey(args[0])
		if err != nil {
			return err
		}
		value := args[1]

		p := cfg.Profiles[name]
		switch key {
		case "eval_addr":
			p.EvalAddr = value
		case "index_addr":
			p.IndexAddr = value
		default:
			return fmt.Errorf("unknown key '%s', valid keys: eval_addr, index_addr", key)
		}
		cfg.Profiles[name] = p

		if err := cli.SaveConfig(path, cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Successfully set %s.%s\n", name, key)
		return nil
	},
}

func splitProfileKey(s string) (string, string, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid key format, expected 'profile.key' (e.g., 'local.eval_addr')")
	}
	return parts[0], parts[1], nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
