package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagr-loadgen/internal/cli"
	"github.com/TimurManjosov/flagr-loadgen/internal/payload"
)

var payloadCount int

var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Print sample evaluation requests",
	Long: `Print generated evaluation requests without sending them.

Examples:
  flagr-loadgen payload
  flagr-loadgen payload --count 10 --seed 42
  flagr-loadgen payload --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if payloadCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		gen := payload.NewSeededGenerator(cfg.Seed)
		reqs := make([]payload.EvaluationRequest, payloadCount)
		for i := range reqs {
			reqs[i] = gen.Next()
		}

		// "table" is the persistent default; payloads have no table form
		out := cli.OutputFormat(format)
		if out == cli.FormatTable {
			out = cli.FormatJSON
		}
		return cli.PrintPayloads(cmd.OutOrStdout(), reqs, out)
	},
}

func init() {
	rootCmd.AddCommand(payloadCmd)

	payloadCmd.Flags().IntVar(&payloadCount, "count", 1, "Number of requests to print")
	payloadCmd.Flags().Int64("seed", 0, "Payload generator seed (0 seeds from the clock)")
}
