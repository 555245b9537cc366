package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"feedsync/internal/observability/logging"
	"feedsync/internal/usecase/syncer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, cfg WorkerConfig, fn SyncFunc) (*Scheduler, *WorkerMetrics) {
	t.Helper()
	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	s, err := NewScheduler(&cfg, fn, metrics, logging.Discard())
	require.NoError(t, err)
	return s, metrics
}

func TestNewScheduler_RejectsBadSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "whenever"

	_, err := NewScheduler(&cfg, nil, NewWorkerMetrics(prometheus.NewRegistry()), nil)

	assert.ErrorContains(t, err, "whenever")
}

func TestScheduler_RunOnce(t *testing.T) {
	tests := []struct {
		name       string
		stats      *syncer.RunStats
		err        error
		wantStatus string
	}{
		{"success", &syncer.RunStats{Feeds: 2, Published: 5}, nil, "success"},
		{"partial", &syncer.RunStats{Feeds: 2, FailedFeeds: 1, Published: 1}, errors.New("feed b failed"), "partial"},
		{"all feeds failed", &syncer.RunStats{Feeds: 2, FailedFeeds: 2}, errors.New("everything failed"), "failure"},
		{"no stats", nil, syncer.ErrNoFeeds, "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, metrics := newTestScheduler(t, DefaultConfig(), func(context.Context) (*syncer.RunStats, error) {
				return tt.stats, tt.err
			})

			err := s.RunOnce(context.Background())

			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("started")))
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues(tt.wantStatus)))
			if tt.stats != nil {
				assert.Equal(t, float64(tt.stats.Feeds), testutil.ToFloat64(metrics.FeedsProcessedTotal))
				assert.Equal(t, float64(tt.stats.Published), testutil.ToFloat64(metrics.ItemsPublishedTotal))
			}
			if tt.wantStatus == "success" {
				assert.Greater(t, testutil.ToFloat64(metrics.LastSuccessTimestamp), 0.0)
			} else {
				assert.Zero(t, testutil.ToFloat64(metrics.LastSuccessTimestamp))
			}
		})
	}
}

func TestScheduler_RunOnceAppliesTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SyncTimeout = 10 * time.Millisecond
	s, _ := newTestScheduler(t, cfg, func(ctx context.Context) (*syncer.RunStats, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "* * * * *"
	var runs atomic.Int32
	s, _ := newTestScheduler(t, cfg, func(context.Context) (*syncer.RunStats, error) {
		runs.Add(1)
		return &syncer.RunStats{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 5*time.Millisecond)
	assert.WithinDuration(t, time.Now(), s.Next(), time.Minute+time.Second)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_NextHonoursTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "0 9 * * *"
	cfg.Timezone = "Asia/Tokyo"
	s, _ := newTestScheduler(t, cfg, nil)

	next := s.Next()

	assert.Equal(t, 9, next.In(cfg.Location()).Hour())
	assert.Zero(t, next.In(cfg.Location()).Minute())
}
