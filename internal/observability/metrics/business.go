package metrics

import (
	"strconv"
	"time"
)

// RecordFeedSync records the duration of one feed's reconciliation.
func RecordFeedSync(feed string, duration time.Duration) {
	FeedSyncDuration.WithLabelValues(feed).Observe(duration.Seconds())
}

// RecordFeedError records a feed-level failure at the given step
// (e.g. "fetch_failed", "credential_failed", "history_failed").
func RecordFeedError(feed, step string) {
	FeedErrorsTotal.WithLabelValues(feed, step).Inc()
}

// RecordItemPublished records the result of a publish attempt.
func RecordItemPublished(feed string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	ItemsPublishedTotal.WithLabelValues(feed, result).Inc()
}

// RecordItemSkipped records a feed entry that was skipped before publishing.
func RecordItemSkipped(feed, reason string) {
	ItemsSkippedTotal.WithLabelValues(feed, reason).Inc()
}

// RecordAlreadySeen records items filtered out by the seen-set.
func RecordAlreadySeen(feed string, count int) {
	if count <= 0 {
		return
	}
	ItemsAlreadySeenTotal.WithLabelValues(feed).Add(float64(count))
}

// RecordSeenGUIDs records the size of the seen-set for a feed.
func RecordSeenGUIDs(feed string, count int) {
	SeenGUIDs.WithLabelValues(feed).Set(float64(count))
}

// RecordProfileUpdate records a profile reconciliation outcome.
func RecordProfileUpdate(feed, status string) {
	ProfileUpdatesTotal.WithLabelValues(feed, status).Inc()
}

// RecordCircuitState records a circuit breaker's current state.
func RecordCircuitState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordDestinationRequest records one destination request. A status code
// of 0 means the request failed before a response arrived.
func RecordDestinationRequest(op string, statusCode int) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	DestinationRequestsTotal.WithLabelValues(op, code).Inc()
}
