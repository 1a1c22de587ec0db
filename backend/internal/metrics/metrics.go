// Package metrics holds the Prometheus collectors for ranking, feed assembly,
// storage health and the HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendDuration measures workspace recommendation latency
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholargraph_recommend_duration_seconds",
			Help:    "Workspace recommendation latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// RecommendCandidates observes how many workspaces were scored per request
	RecommendCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholargraph_recommend_candidates",
			Help:    "Candidate workspaces scored per recommendation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// FeedDuration measures feed assembly latency
	FeedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholargraph_feed_duration_seconds",
			Help:    "Feed assembly latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// FeedItems observes page sizes returned by the feed
	FeedItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholargraph_feed_items",
			Help:    "Posts returned per feed page",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	// StoreFailures counts storage operations that failed as unavailable
	StoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholargraph_store_failures_total",
			Help: "Storage operations that failed with an unavailable error",
		},
		[]string{"operation"},
	)

	// BreakerState reports the storage circuit breaker state (0 closed, 1 half-open, 2 open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scholargraph_store_breaker_state",
			Help: "Storage circuit breaker state",
		},
		[]string{"name"},
	)

	// RequestsTotal counts HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholargraph_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration measures HTTP request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholargraph_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// Since returns the seconds elapsed from start, for Observe calls
func Since(start time.Time) float64 {
	return time.Since(start).Seconds()
}
