// Package metrics provides Prometheus metrics for ingestion and graph serving.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsTotal tracks ingested records by outcome (applied, skipped, failed)
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vfsc",
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Total number of ingested company records by outcome",
		},
		[]string{"outcome"},
	)

	// ItemDuration tracks how long one record takes to apply
	ItemDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vfsc",
			Subsystem: "ingest",
			Name:      "item_duration_seconds",
			Help:      "Duration of applying one company record in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// SessionsTotal tracks finished ingestion sessions by status
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vfsc",
			Subsystem: "ingest",
			Name:      "sessions_total",
			Help:      "Total number of finished ingestion sessions by status",
		},
		[]string{"status"},
	)

	// GraphBuildDuration tracks full graph materialization time
	GraphBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vfsc",
			Subsystem: "graph",
			Name:      "build_duration_seconds",
			Help:      "Duration of building the relationship graph in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// GraphSize tracks node and edge counts of the last built graph
	GraphSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vfsc",
			Subsystem: "graph",
			Name:      "elements",
			Help:      "Number of nodes and edges in the last built graph",
		},
		[]string{"element"},
	)

	// GraphCacheRequests tracks graph cache lookups by result (hit, miss)
	GraphCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vfsc",
			Subsystem: "graph",
			Name:      "cache_requests_total",
			Help:      "Total number of graph cache lookups by result",
		},
		[]string{"result"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vfsc",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesConsumed tracks Kafka messages handled by the consumer
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vfsc",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of Kafka messages handled by the consumer",
		},
		[]string{"topic", "status"},
	)

	// HTTPRequestsTotal tracks API requests by route and status class
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vfsc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status class",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vfsc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RedisOperationDuration tracks Redis operation duration
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vfsc",
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"operation"},
	)
)

// RecordItem records one ingested record
func RecordItem(outcome string, durationSeconds float64) {
	ItemsTotal.WithLabelValues(outcome).Inc()
	ItemDuration.Observe(durationSeconds)
}

// RecordGraphBuild records a graph build and the size of its result
func RecordGraphBuild(nodes, edges int, durationSeconds float64) {
	GraphBuildDuration.Observe(durationSeconds)
	GraphSize.WithLabelValues("nodes").Set(float64(nodes))
	GraphSize.WithLabelValues("edges").Set(float64(edges))
}

// RecordRequest records one served HTTP request. Status codes are collapsed
// into classes (2xx, 4xx, ...) to keep label cardinality bounded.
func RecordRequest(method, route string, status int, durationSeconds float64) {
	class := strconv.Itoa(status/100) + "xx"
	HTTPRequestsTotal.WithLabelValues(method, route, class).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
