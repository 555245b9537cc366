package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"feedsync/internal/infra/worker"
	"feedsync/internal/usecase/syncer"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Sync on a cron schedule",
		Long: `Run as a daemon: sync all feeds on $FEEDSYNC_CRON_SCHEDULE (default every
30 minutes) and serve /health, /health/ready, /health/breakers and /metrics
on $FEEDSYNC_HEALTH_PORT. --run-now or FEEDSYNC_RUN_ON_START=true syncs once
before the first scheduled run. Stops on SIGINT or SIGTERM after the current run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metrics := worker.NewWorkerMetrics(nil)
			a, err := newApp(opts, metrics)
			if err != nil {
				return err
			}
			defer a.close()

			sched, err := worker.NewScheduler(a.settings, func(ctx context.Context) (*syncer.RunStats, error) {
				return a.service.SyncAll(ctx, a.feeds)
			}, metrics, a.logger)
			if err != nil {
				return err
			}

			health := worker.NewHealthServer(fmt.Sprintf(":%d", a.settings.HealthPort), a.logger, nil)
			health.WatchBreakers(a.fetcher.Breaker(), a.dest.Breaker())

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				if err := health.Start(ctx); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				if runNow || a.settings.RunOnStart {
					// Failures are logged and counted; the schedule still starts.
					_ = sched.RunOnce(ctx)
				}
				health.SetReady(true)
				defer health.SetReady(false)
				return sched.Run(ctx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "sync once immediately before waiting for the schedule")
	return cmd
}
