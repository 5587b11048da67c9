// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch lifecycle
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_batches_total",
			Help: "Total number of analysis batches by terminal status",
		},
		[]string{"status"}, // "complete", "rejected", "failed"
	)

	BatchStageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_batch_stage_transitions_total",
			Help: "Total number of batch state transitions",
		},
		[]string{"stage"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "artwork_batch_duration_seconds",
			Help:    "Duration of completed analysis batches in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	BatchImages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "artwork_batch_images",
			Help:    "Number of images per accepted batch",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	// Per-image analysis
	ImageAnalysisFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artwork_image_analysis_failures_total",
			Help: "Total number of images whose analysis failed and was replaced by an empty tag set",
		},
	)

	// Candidate sources
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_source_requests_total",
			Help: "Total number of candidate source searches by outcome",
		},
		[]string{"source", "outcome"}, // "success", "error", "timeout", "rejected"
	)

	SourceCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_source_candidates_total",
			Help: "Total number of raw records returned per source",
		},
		[]string{"source"},
	)

	CandidatesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_candidates_excluded_total",
			Help: "Total number of candidates removed by the exclusion denylist",
		},
		[]string{"rule"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artwork_circuit_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	// Reachability validation
	ValidationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artwork_validation_cache_hits_total",
			Help: "Total number of reachability cache hits",
		},
	)

	ValidationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artwork_validation_cache_misses_total",
			Help: "Total number of reachability cache misses",
		},
	)

	ValidationCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artwork_validation_cache_entries",
			Help: "Current number of cached reachability results",
		},
	)

	ProbeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_probe_results_total",
			Help: "Total number of image URL probes by outcome",
		},
		[]string{"outcome"}, // "valid", "invalid", "error", "malformed"
	)
)
