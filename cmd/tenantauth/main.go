// Command tenantauth runs the multi-tenant session authentication service
// and its administrative tasks.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/session"
	"github.com/MrEthical07/tenantAuth/store/sqlstore"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app carries what every subcommand resolves from the persistent flags.
type app struct {
	configPath string
	cfg        Config
	logger     *slog.Logger
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "tenantauth",
		Short:         "Multi-tenant session authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("config") {
				if v := os.Getenv("TENANTAUTH_CONFIG"); v != "" {
					a.configPath = v
				}
			}
			cfg, err := LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newHashPasswordCmd(a),
		newBootstrapSuperAdminCmd(a),
		newCreateRoleCmd(a),
		newAccountCmd(a),
		newSessionsCmd(a),
		newLoadtestCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.out, "tenantauth version %s (commit: %s)\n", version, commit)
			return err
		},
	}
}

func newLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func (a *app) openStore(ctx context.Context) (*sqlstore.Store, error) {
	dialect, err := sqlstore.ParseDialect(a.cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(ctx, dialect, a.cfg.Database.DSN)
}

func (a *app) redisClient() redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{a.cfg.Redis.Addr},
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
}

// offlineEngine builds an engine for administrative commands. It never
// serves logins, so live sessions stay in memory and throttling is off.
func (a *app) offlineEngine(store *sqlstore.Store) (*tenantAuth.Engine, error) {
	cfg := a.cfg.Auth
	cfg.Security.EnableLoginThrottle = false
	cfg.Metrics.Enabled = false

	return tenantAuth.New().
		WithConfig(cfg).
		WithLogger(a.logger).
		WithSessionStore(session.NewMemoryStore()).
		WithAccountStore(store).
		WithTenantGraph(store).
		WithSessionRecorder(store).
		Build()
}
