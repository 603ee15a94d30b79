package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gatewire/gateway/internal/config"
	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/core/events"
	"github.com/gatewire/gateway/pkg/metrics"
)

// Version is the CLI version.
const Version = "0.1.0"

var (
	envFile     string
	metricsAddr string
	intentsFlag string
	compress    bool

	appCfg  *config.AppConfig
	logger  *logrus.Logger
	intents core.Intents
)

// Execute runs the root command.
func Execute() error {
	return rootCmd().Execute()
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gateway-cli",
		Short:        "Connect to the gateway and log received events",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("intents") {
				cfg.Intents = intentsFlag
			}
			if cmd.Flags().Changed("compress") {
				cfg.Compress = compress
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, _ := cfg.Level()
			logger = logrus.New()
			logger.SetLevel(level)
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

			intents, _ = cfg.ParsedIntents()
			appCfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "environment file to load (default .env)")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (e.g. :9090)")
	root.PersistentFlags().StringVar(&intentsFlag, "intents", config.DefaultIntents, "comma separated gateway intents")
	root.PersistentFlags().BoolVar(&compress, "compress", false, "request zlib-compressed payloads")

	root.AddCommand(runCmd(), clusterCmd(), versionCmd())
	return root
}

// startMetrics serves the given collectors and the event counter on the
// configured address until ctx is done. The counter is returned even when
// metrics are disabled.
func startMetrics(ctx context.Context, cs ...prometheus.Collector) (*metrics.EventCounter, error) {
	reg := prometheus.NewRegistry()
	counter, err := metrics.NewEventCounter(reg)
	if err != nil {
		return nil, err
	}
	if appCfg.MetricsAddr == "" {
		return counter, nil
	}

	reg.MustRegister(cs...)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	server := &http.Server{
		Addr:              appCfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", appCfg.MetricsAddr).Info("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return counter, nil
}

// logEvent logs an event at a level matching its importance.
func logEvent(shardID uint64, event events.Event) {
	entry := logger.WithFields(logrus.Fields{
		"shard_id": shardID,
		"type":     event.Type(),
	})

	switch e := event.(type) {
	case *events.DispatchEvent:
		entry.WithFields(logrus.Fields{"name": e.Name, "seq": e.Seq}).Debug("dispatch")
	case *events.ReadyEvent:
		entry.WithFields(logrus.Fields{"user": e.User.Username, "guilds": len(e.Guilds)}).Info("ready")
	case *events.ShardDisconnectedEvent:
		if e.Code != nil {
			entry = entry.WithField("code", *e.Code)
		}
		entry.WithField("reason", e.Reason).Warn("disconnected")
	case *events.GatewayHeartbeatAckEvent, *events.GatewayHeartbeatEvent:
		entry.Trace("heartbeat")
	default:
		entry.Info("event")
	}
}
