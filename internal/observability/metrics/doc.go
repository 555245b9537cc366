// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes feedsync's sync metrics:
//   - Feed sync duration and per-feed failures
//   - Items published, failed and skipped
//   - Seen-set sizes from destination history scans
//   - Profile reconciliation outcomes
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint of the worker.
//
// Example usage:
//
//	import "feedsync/internal/observability/metrics"
//
//	func publish(feed string) {
//	    start := time.Now()
//	    // ... publish items ...
//	    metrics.RecordItemPublished(feed, true)
//	    metrics.RecordFeedSync(feed, time.Since(start))
//	}
package metrics
