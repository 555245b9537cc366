package main

import (
	"fmt"

	"feedsync/internal/infra/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		Aliases: []string{"syncOnce"},
		Short:   "Publish new feed entries once",
		Long: `Fetch every configured feed and publish the entries the destination does
not have yet, oldest first. A failing feed does not stop the others; the
command exits non-zero if any feed failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, worker.NewWorkerMetrics(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.service.SyncAll(cmd.Context(), a.feeds)
			if stats != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(),
					"published %d item(s) from %d feed(s); %d item(s) failed; %d feed(s) failed\n",
					stats.Published, stats.Feeds, stats.Failed, stats.FailedFeeds)
			}
			return err
		},
	}
}
