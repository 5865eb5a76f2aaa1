package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nanohub/internal/cache"
	"nanohub/internal/config"
	"nanohub/internal/events"
	"nanohub/internal/logger"
	"nanohub/internal/server/api"
	"nanohub/internal/server/service"
	"nanohub/internal/storage"
	"nanohub/internal/storage/migration"
	"nanohub/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		info := version.GetInfo()
		fmt.Println(info.String())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = zlog.Sync()
	}()
	zlog = zlog.Named("server")

	// Initialize storage
	store, err := storage.NewStorage(&cfg.Storage, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Run schema migrations if configured
	if cfg.Storage.AutoMigrate {
		if err := runMigrations(store, &cfg.Storage, zlog); err != nil {
			zlog.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// Initialize cache
	c, err := cache.New(&cfg.Cache, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize cache", zap.Error(err))
	}

	// Initialize event publisher
	publisher, err := events.NewPublisher(&cfg.Events, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize event publisher", zap.Error(err))
	}

	// Initialize service
	svc := service.NewService(cfg, store, c, publisher, zlog)

	// Initialize router
	router := api.NewRouter(cfg, svc, zlog)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in background
	go func() {
		zlog.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.Bool("tls", cfg.Server.TLS.Enabled))

		var err error
		if cfg.Server.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			zlog.Fatal("Server error", zap.Error(err))
		}
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	zlog.Info("Received signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	zlog.Info("Starting graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown error", zap.Error(err))
	}

	if err := svc.Stop(); err != nil {
		zlog.Error("Service shutdown error", zap.Error(err))
	}

	zlog.Info("Shutdown complete")
}

func runMigrations(store storage.Storage, cfg *storage.Config, zlog *zap.Logger) error {
	migrator, err := migration.NewMigrator(store.DB(), cfg, zlog)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	return migrator.RunMigrations(ctx)
}
