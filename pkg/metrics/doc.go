// Package metrics exports shard state and event counts to Prometheus.
package metrics
