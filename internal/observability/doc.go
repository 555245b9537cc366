// Package observability groups feedsync's logging, metrics and tracing.
//
// Subpackages:
//   - logging: slog construction, verbosity levels and context helpers
//   - metrics: Prometheus collectors and the Record* helpers used by the sync core
//   - tracing: OpenTelemetry spans and an http.RoundTripper that traces outgoing requests
//
// Example usage:
//
//	import (
//	    "feedsync/internal/observability/logging"
//	    "feedsync/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger(os.Stderr, logging.Options{Verbosity: 4})
//	    logger.Info("sync started")
//
//	    metrics.RecordItemPublished("https://example.com/feed.xml", true)
//	}
package observability
