// Package telemetry holds the Prometheus collectors and OpenTelemetry tracer
// setup shared by the optimization pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_gepa_llm_requests_total",
		Help: "Total LLM requests by model and outcome",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persona_gepa_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"model"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_gepa_cache_lookups_total",
		Help: "LLM response cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	EvaluatedExamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_gepa_evaluated_examples_total",
		Help: "Validation examples evaluated by outcome",
	}, []string{"outcome"})

	ObjectiveScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "persona_gepa_objective_score",
		Help:    "Weighted judge scores returned to the optimizer",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	OptimizationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_gepa_optimization_runs_total",
		Help: "Optimization runs by outcome",
	}, []string{"status"})
)
