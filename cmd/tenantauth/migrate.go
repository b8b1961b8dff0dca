package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/tenantAuth/store/sqlstore"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd.Context(), func(ctx context.Context, store *sqlstore.Store) error {
					if err := store.Migrate(ctx); err != nil {
						return err
					}
					return a.printVersion(ctx, store)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd.Context(), func(ctx context.Context, store *sqlstore.Store) error {
					if err := store.MigrateDown(ctx); err != nil {
						return err
					}
					return a.printVersion(ctx, store)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd.Context(), a.printVersion)
			},
		},
	)
	return cmd
}

func (a *app) withStore(ctx context.Context, fn func(context.Context, *sqlstore.Store) error) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func (a *app) printVersion(ctx context.Context, store *sqlstore.Store) error {
	v, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "schema version: %d\n", v)
	return err
}
