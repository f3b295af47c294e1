package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"notify-client/internal/adapters/kafka"
	"notify-client/internal/adapters/storage"
	"notify-client/internal/api/routes"
	"notify-client/internal/config"
	"notify-client/internal/connection"
	"notify-client/internal/database"
	"notify-client/internal/heartbeat"
	"notify-client/internal/models"
	"notify-client/internal/relay"
	"notify-client/internal/services"
	"notify-client/internal/tokenfile"
	"notify-client/internal/view"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// applyFlags lets explicitly set flags win over the environment
func applyFlags(cmd *cobra.Command, opts *RootOptions, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Client.ServerURL = opts.ServerURL
	}
	if flags.Changed("token") {
		cfg.Client.Token = opts.Token
	}
	if flags.Changed("api-addr") {
		cfg.API.Addr = opts.APIAddr
	}
	if opts.NoConnect {
		cfg.Client.AutoConnect = false
	}
	return cfg.Validate()
}

// buildSinks opens every configured relay destination. A destination that
// cannot be reached is logged and skipped.
func buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) []relay.Sink {
	sinks := []relay.Sink{relay.NewLogSink(logger)}

	if cfg.Redis.Enabled() {
		client, err := database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis relay disabled", "error", err)
		} else {
			sinks = append(sinks, &closingSink{
				Sink:   relay.NewRedisSink(services.NewRedisService(client), cfg.Redis.Channel),
				closer: client.Close,
			})
		}
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka)
		if err != nil {
			logger.Warn("Kafka relay disabled", "error", err)
		} else {
			sinks = append(sinks, relay.NewKafkaSink(producer, cfg.Kafka.Topic))
		}
	}

	if cfg.Archive.Enabled() {
		store, err := storage.NewMinIOClient(ctx, cfg.Archive, logger)
		if err != nil {
			logger.Warn("Archive relay disabled", "error", err)
		} else {
			sinks = append(sinks, relay.NewArchiveSink(store, logger))
		}
	}

	return sinks
}

// closingSink releases the connection a sink publishes through
type closingSink struct {
	relay.Sink
	closer func() error
}

func (s *closingSink) Close() error {
	return errors.Join(s.Sink.Close(), s.closer())
}

func runClient(cmd *cobra.Command, opts *RootOptions) error {
	// Load configuration
	cfg, err := config.Load(envFiles(opts)...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return err
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("Starting notification client", "serverURL", cfg.Client.ServerURL)

	initialToken := cfg.Client.Token
	if cfg.Client.TokenFile != "" {
		token, err := tokenfile.Read(cfg.Client.TokenFile)
		if err != nil {
			return fmt.Errorf("failed to read token file: %w", err)
		}
		initialToken = token
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Relay received notifications to the configured sinks
	rl := relay.New(logger, relay.DefaultSinkTimeout, buildSinks(ctx, cfg, logger)...)

	manager := connection.New(cfg.Client.ServerURL,
		connection.WithLogger(logger),
		connection.WithToken(initialToken),
		connection.WithReconnectDelay(cfg.Client.ReconnectDelay),
		connection.WithDialTimeout(cfg.Client.DialTimeout),
		connection.WithNotificationHook(func(userID string, n models.Notification) {
			_ = rl.Enqueue(userID, n)
		}),
	)

	controller := newTokenController(manager, initialToken, logger)
	logTokenClaims(logger, initialToken)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		manager.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		rl.Run(ctx)
	}()

	// Render every committed state
	screenOpts := []view.ScreenOption{view.WithTokenSource(controller.Token)}
	if opts.Clear {
		screenOpts = append(screenOpts, view.WithClearScreen())
	}
	screen := view.NewScreen(cmd.OutOrStdout(), screenOpts...)
	states, unsubscribe := manager.Subscribe()
	defer unsubscribe()
	go screen.Run(ctx, states)

	if cfg.Client.TokenFile != "" {
		watcher := tokenfile.New(cfg.Client.TokenFile, func(token string) {
			if err := controller.SetToken(token); err != nil {
				logger.Warn("Failed to apply token", "error", err)
				return
			}
			if token != "" && cfg.Client.AutoConnect {
				if err := manager.Connect(); err != nil {
					logger.Warn("Connect after token change failed", "error", err)
				}
			}
		}, logger)
		if _, err := watcher.Load(); err != nil {
			logger.Warn("Failed to read token file", "error", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("Token file watcher stopped", "error", err)
			}
		}()
	}

	var beat *heartbeat.Scheduler
	if cfg.Client.PingSchedule != "" {
		beat, err = heartbeat.New(cfg.Client.PingSchedule, manager, logger)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		beat.Start()
	}

	// Local control API
	router := routes.NewRouter(controller, rl, cfg.API, logger)
	router.SetupRoutes()
	server := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}
	go func() {
		logger.Info("Control API starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Control API failed", "error", err)
		}
	}()

	if cfg.Client.AutoConnect && controller.Token() != "" {
		if err := manager.Connect(); err != nil {
			logger.Warn("Initial connect failed", "error", err)
		}
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Client shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control API forced to shutdown", "error", err)
	}
	if beat != nil {
		beat.Stop()
	}

	// Stops the manager, which closes the connection normally, then drains the relay.
	cancel()
	wg.Wait()

	if err := rl.Close(); err != nil {
		logger.Error("Failed to close relay sinks", "error", err)
	}

	logger.Info("Client stopped")
	return nil
}
