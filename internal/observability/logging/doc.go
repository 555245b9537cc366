// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout feedsync.
//
// Key features:
//   - JSON and text output formats
//   - Verbosity levels 1 (error) through 5 (trace), default 3 (info)
//   - Run and feed tagging
//   - Timing of long operations at debug level
//
// Example usage:
//
//	import "feedsync/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger(os.Stderr, logging.Options{Verbosity: 4})
//	    logger.Info("sync started", slog.Int("feeds", 3))
//	}
package logging
