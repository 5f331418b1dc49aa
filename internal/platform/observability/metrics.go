package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_messages_ingested_total",
		Help: "The total number of ingested raw messages",
	}, []string{"source_type"})

	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_messages_processed_total",
		Help: "The total number of raw messages processed by the canonicalization pipeline",
	}, []string{"status"})

	CanonicalResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_canonical_resolutions_total",
		Help: "Canonicalization outcomes by match kind (link, similarity, created)",
	}, []string{"kind"})

	PipelineBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "digest_pipeline_backlog_size",
		Help: "Number of unlinked raw messages in the database",
	})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	LLMRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_llm_retries_total",
		Help: "LLM call retries by task",
	}, []string{"task"})

	DigestsQueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_queued_total",
		Help: "The total number of digests queued for moderation",
	}, []string{"period"})

	DigestsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_published_total",
		Help: "The total number of digests published by trigger (manual, auto)",
	}, []string{"trigger"})

	DigestsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_rejected_total",
		Help: "The total number of digests rejected by a moderator",
	})
)
