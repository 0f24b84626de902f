package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsProcessed tracks converted items by terminal status
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docpress_items_processed_total",
			Help: "Total number of items processed",
		},
		[]string{"status"},
	)

	// RetryAttempts tracks re-attempts across all items
	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docpress_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
	)

	// ClassifiedErrors tracks classified failures by category and severity
	ClassifiedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docpress_classified_errors_total",
			Help: "Total number of classified errors",
		},
		[]string{"category", "severity"},
	)

	// ConversionDuration tracks per-item conversion latency
	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docpress_conversion_duration_seconds",
			Help:    "Conversion latency per item in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// CheckpointSaves tracks checkpoint persistence operations
	CheckpointSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docpress_checkpoint_saves_total",
			Help: "Total number of checkpoint saves",
		},
	)

	// BatchProgress tracks completion percentage of the running batch
	BatchProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docpress_batch_progress_percent",
			Help: "Completion percentage of the current batch",
		},
	)
)
