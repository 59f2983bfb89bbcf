// Package metrics holds the Prometheus collectors of the tracker.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	GenerationsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_generations_started_total",
		Help: "Reload generations started.",
	})

	StaleGenerationsDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_stale_generations_discarded_total",
		Help: "Reload generations whose results were discarded because a newer one started.",
	})

	RetrievalFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_retrieval_failures_total",
		Help: "Balance and price lookups that failed.",
	}, []string{"kind", "chain"})

	PricesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_prices_fetched_total",
		Help: "Prices resolved from the price source.",
	}, []string{"chain"})

	SnapshotsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_snapshots_saved_total",
		Help: "Snapshots appended to the store.",
	})

	MalformedState = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_malformed_state_total",
		Help: "Persisted values that could not be decoded and were replaced by defaults.",
	}, []string{"key"})

	ReloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_reload_duration_seconds",
		Help:    "Duration of completed reload generations.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_http_requests_total",
		Help: "REST API requests by route and status.",
	}, []string{"method", "route", "status"})
)

// MustRegister registers every collector with reg.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		GenerationsStarted,
		StaleGenerationsDiscarded,
		RetrievalFailures,
		PricesFetched,
		SnapshotsSaved,
		MalformedState,
		ReloadDuration,
		HTTPRequests,
	)
}
