package main

import (
	"fmt"

	"feedsync/internal/infra/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newProfilesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"up", "updateProfiles"},
		Short:   "Update each feed user's display name and bio",
		Long: `Set each feed user's profile to the configured name (or the feed's title)
and a bio linking back to the feed. Profiles that already match are left
alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, worker.NewWorkerMetrics(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.service.UpdateAllProfiles(cmd.Context(), a.feeds)
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Feed, r.Status)
			}
			return err
		},
	}
}
