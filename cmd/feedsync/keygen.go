package main

import (
	"fmt"

	"feedsync/internal/infra/feoblog"

	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create a new FeoBlog user ID and password",
		Long: `Print a freshly generated user ID and password in the form the config file
expects. The user still has to be registered on the FeoBlog server before
it accepts posts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := feoblog.GeneratePrivateKey(nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "user_id: %s\npassword: %s\n", key.UserID(), key)
			return err
		},
	}
}
