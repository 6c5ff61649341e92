/*
Package main is the entry point for the Secret Santa exchange service.

It is responsible for loading configuration, initializing the global logging
system, hydrating the room registry from the durable snapshot, setting up the
HTTP server, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) so a final snapshot flush happens before exit.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"secretsanta/internal/app/backup"
	"secretsanta/internal/app/exchange"
	"secretsanta/internal/app/persist"
	"secretsanta/internal/configs"
	"secretsanta/internal/handler"
	"secretsanta/internal/pkg/logx"
)

// snapshotFilename is the live snapshot name inside the data directory.
const snapshotFilename = "rooms.json"

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("offsite_replication", cfg.ReplicationEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional offsite snapshot replication
	var replicator persist.Replicator
	if cfg.ReplicationEnabled() {
		s3Replicator, err := backup.NewS3Replicator(backup.Config{
			BucketName:      cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize snapshot replication")
		}
		replicator = s3Replicator
	}

	// Durable snapshot store and room registry
	store, err := persist.NewStore(filepath.Join(cfg.DataDir, snapshotFilename), replicator)
	if err != nil {
		logx.Fatal(err, "Failed to initialize snapshot store")
	}

	registry := exchange.NewRegistry(store)
	if err := registry.Hydrate(); err != nil {
		logx.Fatal(err, "Failed to hydrate room registry")
	}

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Registry: registry,
		Config:   cfg,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Secret Santa exchange server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	// One last flush so nothing committed in memory is lost across restarts.
	registry.Flush()

	logx.Info("Server gracefully stopped.")
}
