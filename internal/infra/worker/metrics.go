package worker

import (
	"feedsync/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics tracks scheduled runs. It embeds the worker's
// configuration metrics (feedsync_worker_config_*).
type WorkerMetrics struct {
	*config.ConfigMetrics

	// JobRunsTotal counts runs by status: started, success, partial, failure, skipped.
	JobRunsTotal *prometheus.CounterVec

	JobDurationSeconds prometheus.Histogram

	FeedsProcessedTotal prometheus.Counter

	ItemsPublishedTotal prometheus.Counter

	LastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with reg. A nil reg uses the
// default Prometheus registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics(reg, "feedsync_worker"),

		JobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_worker_job_runs_total",
			Help: "Total number of scheduled sync runs by status",
		}, []string{"status"}),

		JobDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedsync_worker_job_duration_seconds",
			Help:    "Duration of scheduled sync runs in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		FeedsProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_worker_feeds_processed_total",
			Help: "Total number of feeds processed across all scheduled runs",
		}),

		ItemsPublishedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_worker_items_published_total",
			Help: "Total number of items published across all scheduled runs",
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feedsync_worker_last_success_timestamp",
			Help: "Unix timestamp of the last run in which every feed synced",
		}),
	}
}

// RecordJobRun counts a run with status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes a run's duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.JobDurationSeconds.Observe(seconds)
}

// RecordFeedsProcessed adds count feeds.
func (m *WorkerMetrics) RecordFeedsProcessed(count int) {
	m.FeedsProcessedTotal.Add(float64(count))
}

// RecordItemsPublished adds count published items.
func (m *WorkerMetrics) RecordItemsPublished(count int) {
	m.ItemsPublishedTotal.Add(float64(count))
}

// RecordLastSuccess sets the last success timestamp to now.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
