package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedsync/internal/observability/logging"
	"feedsync/internal/usecase/syncer"

	"github.com/robfig/cron/v3"
)

// SyncFunc performs one sync over all configured feeds.
type SyncFunc func(ctx context.Context) (*syncer.RunStats, error)

// Scheduler runs a SyncFunc on the configured cron schedule. A run that is
// still going when the next tick fires makes that tick a no-op.
type Scheduler struct {
	cfg     *WorkerConfig
	sync    SyncFunc
	metrics *WorkerMetrics
	logger  *slog.Logger
	cron    *cron.Cron
	entry   cron.EntryID
	baseCtx context.Context
}

// NewScheduler validates cfg.CronSchedule and prepares the schedule.
func NewScheduler(cfg *WorkerConfig, sync SyncFunc, metrics *WorkerMetrics, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Scheduler{
		cfg:     cfg,
		sync:    sync,
		metrics: metrics,
		logger:  logger,
		baseCtx: context.Background(),
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := s.cron.AddFunc(cfg.CronSchedule, func() {
		_ = s.RunOnce(s.baseCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("add cron job %q: %w", cfg.CronSchedule, err)
	}
	s.entry = id
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled. Scheduled runs
// inherit ctx, so cancelling it also aborts a run in progress; Run returns
// once that run has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.baseCtx = ctx
	s.cron.Start()
	s.logger.Info("worker started",
		slog.String("schedule", s.cfg.CronSchedule),
		slog.String("timezone", s.cfg.Timezone),
		slog.Time("next_run", s.Next()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("worker stopped")
	return nil
}

// Next returns the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	if e := s.cron.Entry(s.entry); e.Valid() && !e.Next.IsZero() {
		return e.Next
	}
	sched, err := cron.ParseStandard(s.cfg.CronSchedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now().In(s.cfg.Location()))
}

// RunOnce performs one sync bounded by SyncTimeout and records the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordJobRun("started")
	s.logger.Info("sync started")

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SyncTimeout)
	defer cancel()

	stats, err := s.sync(ctx)
	s.metrics.RecordJobDuration(time.Since(start).Seconds())
	if stats != nil {
		s.metrics.RecordFeedsProcessed(stats.Feeds)
		s.metrics.RecordItemsPublished(stats.Published)
	}

	status := runStatus(stats, err)
	s.metrics.RecordJobRun(status)
	if status == "success" {
		s.metrics.RecordLastSuccess()
	}

	attrs := []any{slog.String("status", status), slog.Duration("duration", time.Since(start))}
	if stats != nil {
		attrs = append(attrs,
			slog.String("run_id", stats.RunID),
			slog.Int("feeds", stats.Feeds),
			slog.Int("failed_feeds", stats.FailedFeeds),
			slog.Int("published", stats.Published),
			slog.Int("failed_items", stats.Failed))
	}
	if err != nil {
		s.logger.Error("sync finished with errors", append(attrs, slog.Any("error", err))...)
		return err
	}
	s.logger.Info("sync completed", attrs...)
	return nil
}

func runStatus(stats *syncer.RunStats, err error) string {
	switch {
	case err == nil:
		return "success"
	case stats != nil && stats.FailedFeeds < stats.Feeds:
		return "partial"
	default:
		return "failure"
	}
}

// cronLogger adapts slog to cron.Logger. Routine scheduler chatter goes to
// debug level.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
