package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tera_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tera_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedRequests counts feed builds by the branch that produced the page.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tera_feed_requests_total",
		Help: "Feed pages served by branch (reengagement, cursor, cold, profile)",
	}, []string{"path"})

	// FeedDegraded counts stages that fell back to a degraded result.
	FeedDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tera_feed_degraded_total",
		Help: "Feed stages that degraded instead of failing the request",
	}, []string{"stage"})

	// FeedCandidates records how many candidates each source contributed.
	FeedCandidates = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tera_feed_candidates",
		Help:    "Candidate posts produced per sourcing run by source",
		Buckets: []float64{0, 1, 5, 10, 20, 40, 60, 100, 200},
	}, []string{"source"})

	// FeedBuildLatency records end-to-end ranking latency by branch.
	FeedBuildLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tera_feed_build_latency_seconds",
		Help:    "Time spent building one feed page",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveFeedBuild records one served page for the given branch.
func ObserveFeedBuild(path string, start time.Time) {
	FeedRequests.WithLabelValues(path).Inc()
	FeedBuildLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
}
