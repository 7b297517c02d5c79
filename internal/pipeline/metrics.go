package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration tracks per-stage latency.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opportunity_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// RunsTotal counts pipeline runs by outcome ("ok" or an error kind).
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"outcome"},
	)

	// RunDuration tracks end-to-end run latency.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opportunity_pipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// RecommendationsEmitted tracks how many recommendations successful runs
	// produce.
	RecommendationsEmitted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opportunity_pipeline_recommendations",
			Help:    "Number of recommendations per successful run",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// AffinityFallbacks counts generative affinity calls that failed and were
	// replaced by an empty suggestion list.
	AffinityFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opportunity_pipeline_affinity_fallbacks_total",
			Help: "Generative affinity failures absorbed by the pipeline",
		},
	)
)
