package main

import (
	"fmt"
	"log/slog"

	"feedsync/internal/observability/logging"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    int
	quiet      int
	logFormat  string

	logger *slog.Logger
}

// verbosity is the default level moved up by -v and down by -q.
func (o *rootOptions) verbosity() int {
	return logging.ClampVerbosity(logging.DefaultVerbosity + o.verbose - o.quiet)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "feedsync",
		Short: "Publish RSS/Atom feeds to FeoBlog",
		Long: `feedsync copies new entries from RSS and Atom feeds into FeoBlog, signing
each post as the feed's configured user. Entries already published are
recognized from the GUID marker at the end of each post, so runs can be
repeated safely.

Example usage:
  feedsync sync                      # publish new entries once
  feedsync profiles                  # update display names and bios
  feedsync worker                    # sync on a cron schedule
  feedsync keygen                    # create credentials for a new feed user
  feedsync -vv --config prod.yaml sync`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.logFormat {
			case "text", "json":
			default:
				return fmt.Errorf("--log-format must be text or json, got %q", opts.logFormat)
			}
			opts.logger = logging.NewLogger(cmd.ErrOrStderr(), logging.Options{
				Verbosity: opts.verbosity(),
				Format:    opts.logFormat,
			})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $FEEDSYNC_CONFIG or feedsync.yaml)")
	flags.CountVarP(&opts.verbose, "verbose", "v", "more logging; repeat for debug and trace")
	flags.CountVarP(&opts.quiet, "quiet", "q", "less logging; repeat for errors only")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newSyncCmd(opts), newProfilesCmd(opts), newWorkerCmd(opts), newKeygenCmd())
	return root
}
