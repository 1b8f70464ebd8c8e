package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector of the service instead of prometheus.DefaultRegistry
var Registry = prometheus.NewRegistry()

var (
	providerAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_provider_attempts_total",
			Help: "Generation provider attempts partitioned by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	providerDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_provider_attempt_duration_seconds",
			Help:    "Duration of a single generation provider attempt.",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider"},
	)
	resultsServed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_generation_results_total",
			Help: "Generation results partitioned by the provider that served them.",
		},
		[]string{"provider"},
	)
	topicOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_batch_topic_outcomes_total",
			Help: "Per-topic batch outcomes partitioned by mode and status.",
		},
		[]string{"mode", "status"},
	)
	clusterRuns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cluster_runs_total",
			Help: "Cluster runs that reached a terminal state.",
		},
		[]string{"state"},
	)
	reconcileMatches = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cluster_reconcile_matches_total",
			Help: "Cluster topics matched to posts partitioned by matching rule.",
		},
		[]string{"rule"},
	)
	platformSyncs = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_platform_sync_total",
			Help: "Publishing platform sync attempts partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler exposes the registry over HTTP
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordProviderAttempt records one provider call
func RecordProviderAttempt(provider, outcome string, d time.Duration) {
	providerAttempts.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordResultServed records which provider produced a successful result
func RecordResultServed(provider string) {
	resultsServed.WithLabelValues(provider).Inc()
}

// RecordTopicOutcome records a per-topic batch outcome
func RecordTopicOutcome(mode, status string) {
	topicOutcomes.WithLabelValues(mode, status).Inc()
}

// RecordClusterRun records a cluster run reaching a terminal state
func RecordClusterRun(state string) {
	clusterRuns.WithLabelValues(state).Inc()
}

// RecordReconcileMatch records a reconciliation match by rule
func RecordReconcileMatch(rule string) {
	reconcileMatches.WithLabelValues(rule).Inc()
}

// RecordPlatformSync records a publishing platform sync attempt
func RecordPlatformSync(outcome string) {
	platformSyncs.WithLabelValues(outcome).Inc()
}
