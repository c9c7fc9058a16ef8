package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/flagr-loadgen/internal/cli"
	"github.com/TimurManjosov/flagr-loadgen/internal/loadgen"
	"github.com/TimurManjosov/flagr-loadgen/internal/payload"
	"github.com/TimurManjosov/flagr-loadgen/internal/telemetry"
)

var runSummary bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate evaluation traffic",
	Long: `Send randomized evaluation requests to POST /api/v1/evaluation and forward
every response body to POST /flagr/flagr-records.

Per iteration, stdout receives the evaluation latency ("<ms>ms"), the
evaluation response body and the indexer response body. Runs until
interrupted unless --iterations is set. Any connection failure ends the run
with a non-zero exit code; nothing is retried.

Examples:
  flagr-loadgen run
  flagr-loadgen run --iterations 100 --summary --format json
  flagr-loadgen run --profile compose --metrics-addr :9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			// after the first signal a second one kills the process,
			// even while a request is hanging
			<-ctx.Done()
			stop()
		}()

		telemetry.Init()

		opts := []loadgen.Option{
			loadgen.WithLogger(log),
			loadgen.WithGenerator(payload.NewSeededGenerator(cfg.Seed)),
		}
		var stats *loadgen.Stats
		if runSummary {
			stats = loadgen.NewStats()
			opts = append(opts, loadgen.WithStats(stats))
		}

		g, gctx := errgroup.WithContext(ctx)
		metricsCtx, stopMetrics := context.WithCancel(gctx)
		defer stopMetrics()

		if cfg.MetricsAddr != "" {
			g.Go(func() error {
				return telemetry.Serve(metricsCtx, cfg.MetricsAddr, log)
			})
		}
		g.Go(func() error {
			defer stopMetrics()
			return loadgen.Run(gctx,
				loadgen.Config{MaxIterations: cfg.Iterations},
				loadgen.Targets{EvalAddr: cfg.EvalAddr, IndexAddr: cfg.IndexAddr},
				cmd.OutOrStdout(), opts...)
		})
		runErr := g.Wait()

		if stats != nil {
			if err := cli.PrintSummary(cmd.OutOrStdout(), stats.Summary(), cli.OutputFormat(format)); err != nil && runErr == nil {
				runErr = err
			}
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("eval-addr", "http://localhost:18000", "Base URL of the flag evaluation service")
	runCmd.Flags().String("index-addr", "http://localhost:9200", "Base URL of the search indexer")
	runCmd.Flags().Int("iterations", 0, "Stop after this many iterations (0 runs until interrupted)")
	runCmd.Flags().Int64("seed", 0, "Payload generator seed (0 seeds from the clock)")
	runCmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address")
	runCmd.Flags().BoolVar(&runSummary, "summary", false, "Print latency statistics when the run ends")
}
