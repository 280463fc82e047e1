package cli

import (
	"context"
	"os/signal"
	"syscall"

	"telemetry-server/cache"
	"telemetry-server/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := migrate(database, log); err != nil {
		return err
	}

	var credCache cache.CredentialCache
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis unavailable", "error", err)
			return err
		}
		defer client.Close()
		credCache = cache.NewRedisCache(client, cfg.CredentialCacheTTL)
		log.Info("Using redis credential cache")
	} else {
		credCache = cache.NewMemoryCache(cfg.CredentialCacheTTL)
		log.Info("Using in-memory credential cache")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.NewServer(server.Deps{
		Config:   cfg,
		DB:       database,
		Log:      log,
		Cache:    credCache,
		Registry: reg,
	})
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
