package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_assistant_turns_total",
			Help: "Total number of processed chat turns by response mode.",
		},
		[]string{"mode"},
	)

	TurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "job_assistant_turn_duration_seconds",
			Help:    "Chat turn processing duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_assistant_provider_requests_total",
			Help: "Total number of listing provider requests by outcome.",
		},
		[]string{"provider", "outcome"},
	)

	ProviderCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_assistant_provider_cache_total",
			Help: "Listing cache lookups by result.",
		},
		[]string{"result"},
	)

	ExtractionStageHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_assistant_extraction_stage_hits_total",
			Help: "Number of extraction stages that produced at least one signal.",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		TurnsTotal,
		TurnDuration,
		ProviderRequestsTotal,
		ProviderCacheTotal,
		ExtractionStageHitsTotal,
	)
}
