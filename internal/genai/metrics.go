package genai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts generative calls by backend, phase, and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_genai_requests_total",
			Help: "Total number of generative service calls",
		},
		[]string{"backend", "phase", "outcome"},
	)

	// RequestDuration tracks backend latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opportunity_genai_request_duration_seconds",
			Help:    "Duration of generative service calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"backend", "phase"},
	)

	// TokensTotal counts tokens consumed by direction.
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_genai_tokens_total",
			Help: "Total tokens consumed by generative calls",
		},
		[]string{"backend", "direction"},
	)
)
