package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tenantAuth/store/sqlstore"
	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain durable session records",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete session records that expired before now minus --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must be >= 0")
			}
			return a.withStore(cmd.Context(), func(ctx context.Context, store *sqlstore.Store) error {
				n, err := store.PruneSessions(ctx, time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				a.logger.Info("pruned session records", "removed", n, "older_than", olderThan.String())
				_, err = fmt.Fprintf(a.out, "removed %d session records\n", n)
				return err
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "retention window past expiry")
	cmd.AddCommand(prune)
	return cmd
}
