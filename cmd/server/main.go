package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lahnaomar31/ubo-relay-char/internal/api"
	"github.com/lahnaomar31/ubo-relay-char/internal/blob"
	"github.com/lahnaomar31/ubo-relay-char/internal/chat"
	"github.com/lahnaomar31/ubo-relay-char/internal/config"
	"github.com/lahnaomar31/ubo-relay-char/internal/handlers"
	"github.com/lahnaomar31/ubo-relay-char/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the metadata store: Postgres when configured, SQLite
	// otherwise (development).
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite initialization failed")
		}
		dataStore = sqliteStore
		logger.Info().Msg("using SQLite store")
	}
	defer dataStore.Close()

	// Initialize Redis store (message logs and sessions)
	redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisStore.Close()
	logger.Info().Msg("connected to Redis")

	// Blob storage is optional; without it, image uploads are disabled.
	var blobStore blob.Store
	if cfg.S3Bucket != "" {
		s3Store, err := blob.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			logger.Fatal().Err(err).Msg("s3 initialization failed")
		}
		blobStore = s3Store
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("connected to S3")
	} else {
		logger.Warn().Msg("S3_BUCKET not set, uploads disabled")
	}

	// Core services
	conversations := chat.NewConversationService(redisStore, logger)
	rooms := chat.NewRoomService(redisStore, dataStore, logger)

	// HTTP layer
	h := handlers.NewHandler(dataStore, redisStore, conversations, rooms, blobStore, cfg.SessionTTL)
	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": dataStore,
		"redis":    redisStore,
	})
	router := api.NewRouter(logger, h, health, redisStore)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting relay-chat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
