package main

import (
	"context"
	"fmt"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/session"
	"github.com/MrEthical07/tenantAuth/store/sqlstore"
	"github.com/spf13/cobra"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Administer existing accounts",
	}

	var localSessions bool
	status := func(use, short string, to tenantAuth.AccountStatus) *cobra.Command {
		c := &cobra.Command{
			Use:   use + " <username|email|phone>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withAccountEngine(cmd.Context(), localSessions, func(ctx context.Context, engine *tenantAuth.Engine, store *sqlstore.Store) error {
					account, err := store.FindAccount(ctx, args[0])
					if err != nil {
						return fmt.Errorf("find account %q: %w", args[0], err)
					}
					revoked, err := engine.SetAccountStatus(ctx, account.ID, to, cliActor)
					if err != nil {
						return err
					}
					a.logger.Info("account status changed", "account_id", account.ID, "status", string(to), "revoked_sessions", revoked)
					return writeJSON(a.out, map[string]any{
						"accountId":       account.ID,
						"username":        account.Username,
						"status":          string(to),
						"revokedSessions": revoked,
					})
				})
			},
		}
		c.Flags().BoolVar(&localSessions, "no-redis", false, "skip live session revocation (no redis connection)")
		return c
	}

	var entityID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the accounts of an entity with their role names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAccountEngine(cmd.Context(), true, func(ctx context.Context, engine *tenantAuth.Engine, _ *sqlstore.Store) error {
				members, err := engine.EntityMembers(ctx, entityID)
				if err != nil {
					return err
				}
				out := make([]map[string]string, 0, len(members))
				for _, m := range members {
					out = append(out, map[string]string{
						"accountId":  m.Account.ID,
						"username":   m.Account.Username,
						"email":      m.Account.Email,
						"entityType": string(m.Account.EntityType),
						"status":     string(m.Account.Status),
						"role":       m.RoleName,
					})
				}
				return writeJSON(a.out, out)
			})
		},
	}
	list.Flags().StringVar(&entityID, "entity", "", "entity id")
	_ = list.MarkFlagRequired("entity")

	cmd.AddCommand(
		status("deactivate", "Deactivate an account and revoke its live sessions", tenantAuth.AccountInactive),
		status("activate", "Reactivate an account", tenantAuth.AccountActive),
		list,
	)
	return cmd
}

// withAccountEngine is withEngine with live sessions in Redis, so that
// deactivation reaches sessions issued by running servers. With local set
// the engine keeps sessions in memory and revocation only affects the
// durable records.
func (a *app) withAccountEngine(ctx context.Context, local bool, fn func(context.Context, *tenantAuth.Engine, *sqlstore.Store) error) error {
	return a.withStore(ctx, func(ctx context.Context, store *sqlstore.Store) error {
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		cfg := a.cfg.Auth
		cfg.Security.EnableLoginThrottle = false
		cfg.Metrics.Enabled = false

		builder := tenantAuth.New().
			WithConfig(cfg).
			WithLogger(a.logger).
			WithAccountStore(store).
			WithTenantGraph(store).
			WithSessionRecorder(store)
		if local {
			builder.WithSessionStore(session.NewMemoryStore())
		} else {
			client := a.redisClient()
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis (use --no-redis to skip session revocation): %w", err)
			}
			builder.WithRedis(client)
		}

		engine, err := builder.Build()
		if err != nil {
			return err
		}
		defer engine.Close()
		return fn(ctx, engine, store)
	})
}
