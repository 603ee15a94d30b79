package commands

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/metrics"
	"github.com/gatewire/gateway/pkg/shard"
	"github.com/gatewire/gateway/pkg/transport"
)

// run: connect a single shard and log its events until interrupted.
func runCmd() *cobra.Command {
	var shardID, shardTotal uint64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single shard and log its events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpClient, err := transport.NewHTTPClient(10 * time.Second)
			if err != nil {
				return err
			}

			opts := []shard.Option{
				shard.WithShard(shardID, shardTotal),
				shard.WithCompression(appCfg.Compress),
				shard.WithEventBuffer(appCfg.EventBuffer),
				shard.WithHTTPClient(httpClient),
				shard.WithLogger(logrus.NewEntry(logger)),
			}
			if appCfg.GatewayURL != "" {
				opts = append(opts, shard.WithGatewayURL(appCfg.GatewayURL))
			}
			cfg, err := shard.NewConfig(appCfg.Token, intents, opts...)
			if err != nil {
				return err
			}

			s, stream := shard.New(cfg)
			counter, err := startMetrics(ctx, metrics.NewShardCollector(s))
			if err != nil {
				return err
			}

			if err := s.Start(ctx); err != nil {
				return err
			}
			defer s.Shutdown()

			for {
				event, err := stream.Next(ctx)
				switch {
				case errors.Is(err, core.ErrStreamClosed):
					return errors.New("shard stopped after a fatal close")
				case err != nil:
					logger.Info("shutting down")
					return nil
				}
				counter.Observe(shardID, event)
				logEvent(shardID, event)
			}
		},
	}

	cmd.Flags().Uint64Var(&shardID, "shard", 0, "shard ID to run")
	cmd.Flags().Uint64Var(&shardTotal, "shards", 1, "total number of shards")
	return cmd
}
