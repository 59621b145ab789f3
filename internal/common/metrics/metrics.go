package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job worker metrics
var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Orchestrator and provider metrics
var (
	// ProviderAttempts outcome is one of success, error, timeout, low_confidence, unavailable.
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_provider_attempts_total",
			Help: "Provider attempts made by the hybrid orchestrator, by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_provider_attempt_duration_seconds",
			Help:    "Latency of a single provider attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	ProviderAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_provider_available",
			Help: "1 when the provider passed its last availability check",
		},
		[]string{"provider"},
	)

	EnrichmentFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_enrichment_failures_total",
			Help: "Business-logic enrichment attempts that were swallowed",
		},
	)

	ChatResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_responses_total",
			Help: "Chat responses returned to callers, by winning provider and UI shape",
		},
		[]string{"provider", "type"},
	)

	LeadsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_leads_captured_total",
			Help: "Leads pushed to the CRM, by priority",
		},
		[]string{"priority"},
	)
)
