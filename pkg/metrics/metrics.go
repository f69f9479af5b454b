package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Storage operation latency (seconds).
	StorageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_op_duration_seconds",
			Help:    "Document store operation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"collection", "op"},
	)

	TasksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total tasks created, including bulk and import",
		},
	)

	// Size of reorder batches.
	ReorderBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "task_reorder_batch_size",
			Help:    "Number of task ids per reorder request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)

	PlansImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plans_imported_total",
			Help: "Total plans created through snapshot import",
		},
	)
)
