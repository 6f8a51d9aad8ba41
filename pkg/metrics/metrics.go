// Package metrics provides Prometheus metrics for the PeacePad service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks API requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peacepad",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "peacepad",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// CustodyLookupsTotal tracks custody computations by outcome
	CustodyLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peacepad",
			Subsystem: "custody",
			Name:      "lookups_total",
			Help:      "Total number of custody lookups by outcome",
		},
		[]string{"pattern", "outcome"},
	)

	// SettlementTransitionsTotal tracks settlement state transitions
	SettlementTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peacepad",
			Subsystem: "ledger",
			Name:      "settlement_transitions_total",
			Help:      "Total number of settlement transitions by type and result",
		},
		[]string{"transition", "result"},
	)

	// BalanceRecomputeDuration tracks balance recomputation duration
	BalanceRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "peacepad",
			Subsystem: "ledger",
			Name:      "balance_recompute_duration_seconds",
			Help:      "Duration of partnership balance recomputation in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// ToneJobsProcessed tracks tone analysis jobs by status
	ToneJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peacepad",
			Subsystem: "tone",
			Name:      "jobs_processed_total",
			Help:      "Total number of tone analysis jobs processed",
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peacepad",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "peacepad",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)
)

// RecordCustodyLookup records a custody computation
func RecordCustodyLookup(pattern, outcome string) {
	CustodyLookupsTotal.WithLabelValues(pattern, outcome).Inc()
}

// RecordSettlementTransition records a settlement transition attempt
func RecordSettlementTransition(transition, result string) {
	SettlementTransitionsTotal.WithLabelValues(transition, result).Inc()
}

// RecordToneJob records a tone analysis job
func RecordToneJob(status string) {
	ToneJobsProcessed.WithLabelValues(status).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}
