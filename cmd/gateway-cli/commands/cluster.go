package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gatewire/gateway/pkg/cluster"
	"github.com/gatewire/gateway/pkg/metrics"
	"github.com/gatewire/gateway/pkg/shard"
	"github.com/gatewire/gateway/pkg/transport"
)

// cluster: run every recommended shard, or a range of them.
func clusterCmd() *cobra.Command {
	var from, to, total uint64

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run every recommended shard and log their events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpClient, err := transport.NewHTTPClient(10 * time.Second)
			if err != nil {
				return err
			}

			scheme := cluster.Auto()
			if cmd.Flags().Changed("total") {
				scheme = cluster.Range(from, to, total)
			}

			entry := logrus.NewEntry(logger)
			opts := []cluster.Option{
				cluster.WithScheme(scheme),
				cluster.WithHTTPClient(httpClient),
				cluster.WithLogger(entry),
				cluster.WithShardOptions(
					shard.WithCompression(appCfg.Compress),
					shard.WithEventBuffer(appCfg.EventBuffer),
				),
			}
			if appCfg.GatewayURL != "" {
				opts = append(opts, cluster.WithGatewayURL(appCfg.GatewayURL))
			}

			c, stream, err := cluster.New(ctx, appCfg.Token, intents, opts...)
			if err != nil {
				return err
			}
			defer c.Down()

			var sources []metrics.InfoSource
			for _, s := range c.Shards() {
				sources = append(sources, s)
			}
			counter, err := startMetrics(ctx, metrics.NewShardCollector(sources...))
			if err != nil {
				return err
			}

			if err := c.Up(ctx); err != nil {
				entry.WithError(err).Warn("not every shard started")
			}

			for {
				event, err := stream.Next(ctx)
				if err != nil {
					logger.Info("shutting down")
					return nil
				}
				counter.Observe(event.ShardID, event.Event)
				logEvent(event.ShardID, event.Event)
			}
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "first shard ID of the range")
	cmd.Flags().Uint64Var(&to, "to", 0, "last shard ID of the range")
	cmd.Flags().Uint64Var(&total, "total", 0, "total shard count; setting it runs the range instead of the recommended count")
	return cmd
}
