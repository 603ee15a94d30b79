package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatewire/gateway/pkg/core/events"
	"github.com/gatewire/gateway/pkg/shard"
)

// InfoSource is anything that reports shard information, usually a
// *shard.Shard.
type InfoSource interface {
	Info() (shard.Information, error)
}

// ShardCollector exports the state of shards as gauges. Shards without an
// active session are skipped.
type ShardCollector struct {
	sources []InfoSource

	latency    *prometheus.Desc
	heartbeats *prometheus.Desc
	sequence   *prometheus.Desc
	stage      *prometheus.Desc
}

// NewShardCollector creates a collector over the given shards.
func NewShardCollector(sources ...InfoSource) *ShardCollector {
	labels := []string{"shard"}
	return &ShardCollector{
		sources: sources,
		latency: prometheus.NewDesc(
			"gateway_shard_latency_seconds",
			"Average heartbeat latency of the shard's session.",
			labels, nil,
		),
		heartbeats: prometheus.NewDesc(
			"gateway_shard_heartbeats",
			"Acknowledged heartbeats of the shard's session.",
			labels, nil,
		),
		sequence: prometheus.NewDesc(
			"gateway_shard_sequence",
			"Last dispatch sequence received by the shard.",
			labels, nil,
		),
		stage: prometheus.NewDesc(
			"gateway_shard_stage",
			"Connection stage of the shard (0 disconnected, 4 connected).",
			labels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *ShardCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.latency
	ch <- c.heartbeats
	ch <- c.sequence
	ch <- c.stage
}

// Collect implements prometheus.Collector.
func (c *ShardCollector) Collect(ch chan<- prometheus.Metric) {
	for _, source := range c.sources {
		info, err := source.Info()
		if err != nil {
			continue
		}
		id := strconv.FormatUint(info.ID, 10)

		if avg, ok := info.Latency.Average(); ok {
			ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, avg.Seconds(), id)
		}
		ch <- prometheus.MustNewConstMetric(c.heartbeats, prometheus.GaugeValue, float64(info.Latency.Heartbeats()), id)
		ch <- prometheus.MustNewConstMetric(c.sequence, prometheus.GaugeValue, float64(info.Seq), id)
		ch <- prometheus.MustNewConstMetric(c.stage, prometheus.GaugeValue, float64(info.Stage), id)
	}
}

// EventCounter counts emitted events per shard and type.
type EventCounter struct {
	events *prometheus.CounterVec
}

// NewEventCounter creates an EventCounter registered with reg.
func NewEventCounter(reg prometheus.Registerer) (*EventCounter, error) {
	c := &EventCounter{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_events_total",
				Help: "Total number of events emitted by shards.",
			},
			[]string{"shard", "type"},
		),
	}

	if err := reg.Register(c.events); err != nil {
		return nil, err
	}

	return c, nil
}

// Observe counts one event of the given shard.
func (c *EventCounter) Observe(shardID uint64, event events.Event) {
	c.events.WithLabelValues(strconv.FormatUint(shardID, 10), string(event.Type())).Inc()
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
