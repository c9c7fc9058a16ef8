package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/flagr-loadgen/internal/mocktarget"
	"github.com/TimurManjosov/flagr-loadgen/internal/telemetry"
)

var mockDelay time.Duration

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve stand-in evaluation and indexing targets",
	Long: `Serve a fake flag evaluation service and a fake search indexer so that
"flagr-loadgen run" can be tried locally.

The evaluation mock knows flag 2 and splits entities evenly between the
variants "control" and "treatment" by hashing the entity ID. The indexer
mock accepts any JSON document.

Examples:
  flagr-loadgen mock
  flagr-loadgen mock --eval-listen :18000 --index-listen :9200 --delay 20ms`,
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

		telemetry.Init()
		srv := mocktarget.New(
			mocktarget.WithSalt(cfg.MockRolloutSalt),
			mocktarget.WithDelay(mockDelay),
			mocktarget.WithLogger(log),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Serve(gctx, cfg.MockEvalAddr, cfg.MockIndexAddr)
		})
		if cfg.MetricsAddr != "" {
			g.Go(func() error {
				return telemetry.Serve(gctx, cfg.MetricsAddr, log)
			})
		}

		err = g.Wait()
		log.Info().
			Int64("evaluated", srv.Evaluated()).
			Int64("indexed", srv.Indexed()).
			Msg("mock targets stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(mockCmd)

	mockCmd.Flags().String("eval-listen", ":18000", "Bind address of the mock evaluation service")
	mockCmd.Flags().String("index-listen", ":9200", "Bind address of the mock indexer")
	mockCmd.Flags().String("salt", "flagr-loadgen", "Bucketing salt for variant assignment")
	mockCmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address")
	mockCmd.Flags().DurationVar(&mockDelay, "delay", 0, "Artificial latency added to every evaluation")
}
