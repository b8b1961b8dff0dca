package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/httpapi"
	"github.com/MrEthical07/tenantAuth/middleware"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		dev     bool
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, dev, migrate)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "use an in-process miniredis instead of redis.addr")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations on start")
	return cmd
}

func (a *app) serve(ctx context.Context, dev, migrate bool) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	var client redis.UniversalClient
	if dev {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		a.logger.Warn("using in-process miniredis; sessions are lost on exit", "addr", mr.Addr())
	} else {
		client = a.redisClient()
	}
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	builder := tenantAuth.New().
		WithConfig(a.cfg.Auth).
		WithLogger(a.logger).
		WithRedis(client).
		WithAccountStore(store).
		WithTenantGraph(store).
		WithSessionRecorder(store)
	if a.cfg.Auth.Audit.Enabled {
		builder.WithAuditSink(tenantAuth.NewSlogSink(a.logger.With("component", "audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	handler, err := httpapi.NewRouter(engine, httpapi.Options{
		Logger:         a.logger,
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		LoginRateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.HTTP.LoginRatePerSecond,
			Burst:             a.cfg.HTTP.LoginBurst,
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http api listening", "addr", a.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
