// Package metrics provides Prometheus metrics for xmarks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncJobsEnqueued counts jobs handed to the sync queue.
	SyncJobsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xmarks",
			Name:      "sync_jobs_enqueued_total",
			Help:      "Total number of sync jobs enqueued",
		},
	)

	// SyncJobsProcessed counts processed jobs by outcome.
	SyncJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xmarks",
			Name:      "sync_jobs_processed_total",
			Help:      "Total number of sync jobs processed",
		},
		[]string{"outcome"},
	)

	// SyncDuration measures per-user sync duration.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "xmarks",
			Name:      "sync_duration_seconds",
			Help:      "Duration of per-user bookmark syncs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// BookmarksStored observes entries written per sync.
	BookmarksStored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "xmarks",
			Name:      "bookmarks_stored_per_sync",
			Help:      "Distribution of bookmark entries stored per sync",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// TokenRefreshTotal counts provider token refreshes by status.
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xmarks",
			Name:      "token_refresh_total",
			Help:      "Total number of provider token refresh operations",
		},
		[]string{"status"},
	)

	// AuthFlowTotal counts authorization flows by status.
	AuthFlowTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xmarks",
			Name:      "auth_flow_total",
			Help:      "Total number of OAuth authorization flows",
		},
		[]string{"status"},
	)
)

// RecordSync records one per-user sync outcome.
func RecordSync(outcome string, durationSeconds float64, stored int) {
	SyncJobsProcessed.WithLabelValues(outcome).Inc()
	SyncDuration.Observe(durationSeconds)
	if outcome == "success" {
		BookmarksStored.Observe(float64(stored))
	}
}
