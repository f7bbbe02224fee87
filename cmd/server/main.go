package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/imposter/internal/api"
	"github.com/mcoot/imposter/internal/factory"
	redisstorage "github.com/mcoot/imposter/internal/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cmd := newCmd(cfg)
	cmd.SetContext(ctx)
	cobra.CheckErr(cmd.Execute())
}

func run(ctx context.Context, cfg *Config) error {
	// Set up logging with JSON output
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.storage,
		CatalogDir:  cfg.catalogDir,
		Seed:        cfg.seed,
	}
	if cfg.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.redisURL
		redisCfg.RoomTTL = cfg.storageTTL()
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("closing storage", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Coordinator: app.Coordinator,
		Catalog:     app.Catalog,
		Registry:    app.Registry,
		WSHandler:   app.WSHandler,
		PublicURL:   cfg.publicURL,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.bind
	serverConfig.Port = cfg.port
	server := api.NewServer(router, serverConfig, logger)

	reaperCtx, cancelReaper := context.WithCancel(ctx)
	defer cancelReaper()
	go app.Coordinator.RunReaper(reaperCtx, cfg.reapInterval, cfg.roomTTL)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.storage),
		slog.Int("categories", len(app.Catalog.Categories())),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
