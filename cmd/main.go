/*
Package main is the entry point for the AgroLink realtime server.

It is responsible for loading configuration, initializing the global logging
system, connecting to PostgreSQL and applying migrations, wiring the realtime
core (registry, rooms, presence tracker, message pipeline) to its stores,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrolink/internal/app/chat"
	"agrolink/internal/app/db"
	"agrolink/internal/app/identity"
	"agrolink/internal/app/market"
	"agrolink/internal/app/message"
	"agrolink/internal/app/presence"
	"agrolink/internal/app/social"
	"agrolink/internal/app/storage"
	"agrolink/internal/configs"
	"agrolink/internal/handler"
	"agrolink/internal/pkg/logx"
)

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
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and apply pending migrations.
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	// Stores
	identities := identity.NewStore(pool)
	friendStore := social.NewPGFriendshipStore(pool)
	groupStore := social.NewPGGroupStore(pool)
	messageStore := message.NewStore(pool)
	presenceStore := presence.NewStore(pool)
	listingStore := market.NewStore(pool)

	friends := social.NewService(friendStore)

	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	// Realtime core
	registry := chat.NewRegistry()
	rooms := chat.NewRooms(registry)
	tracker := chat.NewTracker(registry, rooms, presenceStore, friends)

	pipeline := chat.NewPipeline(messageStore, friends, groupStore, listingStore, identities, rooms, registry)
	receipts := chat.NewReceipts(messageStore, rooms)
	typing := chat.NewTypingRelay(friends, groupStore, rooms)

	hub := chat.NewHub(registry, rooms, tracker, pipeline, receipts, typing, groupStore)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Config:         cfg,
		Hub:            hub,
		Identities:     identities,
		Friends:        friends,
		Groups:         groupStore,
		Messages:       messageStore,
		Presence:       presenceStore,
		StorageService: storageService,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("AgroLink Realtime Server starting on http://localhost%s", serverAddr))
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

	logx.Info("Server gracefully stopped.")
}
