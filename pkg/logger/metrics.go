package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcessDuration tracks how long one asset-class invocation takes
	ProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intel_process_duration_seconds",
			Help:    "Duration of one market intelligence pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"asset_class"},
	)

	NarrativesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_narratives_total",
			Help: "Total number of narratives generated",
		},
		[]string{"asset_class", "priority"},
	)

	SymbolsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_symbols_skipped_total",
			Help: "Symbols excluded from a calculation",
		},
		[]string{"asset_class", "reason"},
	)

	CacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_cache_errors_total",
			Help: "Cache backend failures treated as miss or no-op",
		},
		[]string{"op"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors",
		},
		[]string{"service", "error_type"},
	)
)
