package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notify-client/internal/adapters/kafka"
	"notify-client/internal/config"
	"notify-client/internal/database"
	"notify-client/internal/devserver"
	"notify-client/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("Starting dev push server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional Redis: presence and the notifications:* feed
	var redisService *services.RedisService
	var presence devserver.Presence
	if cfg.Redis.Enabled() {
		redisClient, err := database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		redisService = services.NewRedisService(redisClient)
		presence = redisService
	}

	// Initialize hub
	hub := devserver.NewHub(presence, logger)
	go hub.Run()

	srv, err := devserver.New(cfg.DevServer, hub, logger)
	if err != nil {
		logger.Error("Failed to create dev server", "error", err)
		os.Exit(1)
	}

	if redisService != nil {
		go func() {
			if err := srv.RunRedisFeed(ctx, redisService); err != nil {
				logger.Error("Redis feed stopped", "error", err)
			}
		}()
	}

	if cfg.DevServer.KafkaTopic != "" && cfg.Kafka.Enabled() {
		reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.DevServer.KafkaTopic, "notify-devserver")
		go func() {
			if err := srv.RunKafkaFeed(ctx, reader); err != nil {
				logger.Error("Kafka feed stopped", "error", err)
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.DevServer.Port),
		Handler:     srv.GetEngine(),
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop feeds and the hub; sessions get a normal close
	cancel()
	hub.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
