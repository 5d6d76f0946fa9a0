package scene

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry holds the scene generation metrics. It is separate from the
	// default registry so `serve` exposes only these series.
	Registry = prometheus.NewRegistry()

	attemptsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenegen_completion_attempts_total",
			Help: "Completion attempts made while generating scenes, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
	attemptDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scenegen_completion_attempt_duration_seconds",
			Help:    "Latency of a single completion request.",
			Buckets: prometheus.DefBuckets,
		},
	)
	generationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenegen_generations_total",
			Help: "Scene generations, partitioned by result.",
		},
		[]string{"result"},
	)
	persistenceFailures = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "scenegen_persistence_failures_total",
			Help: "Scene or transcript writes that failed.",
		},
	)
)
