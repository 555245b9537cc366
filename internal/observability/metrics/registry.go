// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync metrics track feed reconciliation runs
var (
	// FeedSyncDuration measures how long one feed's reconciliation took
	FeedSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_feed_sync_duration_seconds",
			Help:    "Duration of a single feed sync in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"feed"},
	)

	// FeedErrorsTotal counts feed-level failures by failed step
	FeedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_feed_errors_total",
			Help: "Total number of feed syncs that failed, by step",
		},
		[]string{"feed", "step"},
	)

	// ItemsPublishedTotal counts publish attempts by result
	ItemsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_items_published_total",
			Help: "Total number of items sent to the destination, by result (success/failure)",
		},
		[]string{"feed", "result"},
	)

	// ItemsSkippedTotal counts feed entries that were not turned into items
	ItemsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_items_skipped_total",
			Help: "Total number of feed entries skipped, by reason",
		},
		[]string{"feed", "reason"},
	)

	// ItemsAlreadySeenTotal counts items filtered out because their GUID was found at the destination
	ItemsAlreadySeenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_items_already_seen_total",
			Help: "Total number of feed items already present at the destination",
		},
		[]string{"feed"},
	)

	// SeenGUIDs records how many GUIDs the last history scan found
	SeenGUIDs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feedsync_seen_guids",
			Help: "Number of GUIDs found in destination history during the last sync",
		},
		[]string{"feed"},
	)

	// ProfileUpdatesTotal counts profile reconciliation outcomes
	ProfileUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_profile_updates_total",
			Help: "Total number of profile reconciliations, by status (published/skipped/error)",
		},
		[]string{"feed", "status"},
	)

	// CircuitBreakerState exposes the state of each circuit breaker (0 closed, 1 half-open, 2 open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feedsync_circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)

	// DestinationRequestsTotal counts requests sent to the destination server
	DestinationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_destination_requests_total",
			Help: "Total number of destination requests, by operation and HTTP status code",
		},
		[]string{"op", "code"},
	)
)
