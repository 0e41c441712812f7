package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/picloudlabs/picloud/internal/logger"
	"github.com/picloudlabs/picloud/pkg/api"
	"github.com/picloudlabs/picloud/pkg/config"
	"github.com/picloudlabs/picloud/pkg/metrics"
	"github.com/picloudlabs/picloud/pkg/storage/fs"
	"github.com/picloudlabs/picloud/pkg/sweeper"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: XDG config dir)")
	initConfig := flag.Bool("init-config", false, "Write a default config file and exit")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if *initConfig {
		if err := config.WriteDefaultConfig(path); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logger: %v", err)
	}

	logger.Info("picloud starting")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Storage backend: %s", cfg.Storage.Type)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The registry must exist before any metrics are constructed, so
	// collectors register instead of silently becoming no-ops.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled at /metrics")
	}
	storageMetrics := metrics.NewStorageMetrics()

	store, cleanup, err := config.CreateStore(ctx, &cfg.Storage, storageMetrics)
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Storage cleanup error: %v", err)
		}
	}()

	// The temp sweeper only applies to the filesystem backend, where
	// interrupted uploads can leave temp files behind.
	var sw *sweeper.Sweeper
	if fsStore, ok := store.(*fs.FSStore); ok && cfg.Sweeper.Enabled {
		sw = sweeper.New(fsStore.Root(), sweeper.Config{
			Enabled:  true,
			Interval: cfg.Sweeper.Interval,
			MaxAge:   cfg.Sweeper.MaxAge,
			DryRun:   cfg.Sweeper.DryRun,
		})

		// Reclaim anything a previous crash left behind before serving.
		if stats, err := sw.RunNow(ctx); err != nil {
			logger.Warn("Startup sweep failed: %v", err)
		} else if stats.OrphanedCount > 0 {
			logger.Info("Startup sweep: %s", stats.Summary())
		}

		sw.Start()
		defer func() {
			if err := sw.Stop(context.Background()); err != nil {
				logger.Warn("Sweeper stop error: %v", err)
			}
		}()
	}

	srv := api.New(cfg.Server, store)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", cfg.Server.ListenAddr)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
