/*
Package main is the entry point for the ChatterUp server.

It is responsible for loading configuration, initializing the global logging system,
opening the message store, starting the chat Hub and the HTTP server, and gracefully
handling operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"chatterup/internal/app/chat"
	"chatterup/internal/app/storage"
	"chatterup/internal/app/store"
	"chatterup/internal/configs"
	"chatterup/internal/handler"
	"chatterup/internal/pkg/limiter"
	"chatterup/internal/pkg/logx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from .env and environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Dur("store_timeout", cfg.StoreTimeout).
		Int("send_queue_size", cfg.SendQueueSize).
		Float64("handshake_rate", cfg.HandshakeRate).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := openStore(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open message store", "driver", cfg.StoreDriver)
	}

	avatars := openAvatarStorage(ctx, cfg)

	var handshakeLimiter *limiter.IPRateLimiter
	if cfg.HandshakeRate > 0 {
		handshakeLimiter = limiter.NewIPRateLimiter(rate.Limit(cfg.HandshakeRate), cfg.HandshakeBurst)
		defer handshakeLimiter.Stop()
	}

	hub := chat.NewHub(gateway, chat.HubConfig{
		StoreTimeout:  cfg.StoreTimeout,
		SendQueueSize: cfg.SendQueueSize,
	})

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:              hub,
		Config:           cfg,
		Avatars:          avatars,
		HandshakeLimiter: handshakeLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info("ChatterUp server starting", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	// stop accepting requests; hijacked websocket connections are closed by the hub
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Hub forced to shutdown")
	}

	if err := gateway.Close(); err != nil {
		logx.Error(err, "Failed to close message store")
	}

	logx.Info("Server gracefully stopped.")
}

func openStore(ctx context.Context, cfg *configs.AppConfig) (store.Gateway, error) {
	switch cfg.StoreDriver {
	case configs.StoreDriverPostgres:
		return store.NewPostgres(ctx, cfg.DatabaseDSN)
	case configs.StoreDriverSQLite:
		return store.NewSQLite(cfg.SQLitePath)
	case configs.StoreDriverMemory:
		logx.Warn("Using in-memory store. Messages are lost on restart.")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// openAvatarStorage returns nil when avatar uploads are not configured or cannot be set up.
func openAvatarStorage(ctx context.Context, cfg *configs.AppConfig) *storage.AvatarService {
	storageCfg := storage.ServiceConfig{
		Bucket:          cfg.S3BucketName,
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicBaseURL:   cfg.S3PublicBaseURL,
	}

	if !storageCfg.Enabled() {
		logx.Info("Avatar uploads disabled: object storage not configured.")
		return nil
	}

	avatars, err := storage.NewAvatarService(ctx, storageCfg)
	if err != nil {
		logx.Error(err, "Avatar uploads disabled: failed to initialize object storage.")
		return nil
	}

	logx.Info("Avatar uploads enabled.", "bucket", cfg.S3BucketName)
	return avatars
}
