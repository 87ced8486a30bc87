package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"usergraph-portal/internal/config"
	"usergraph-portal/internal/gateway"
	"usergraph-portal/internal/interfaces/http/rest"
	"usergraph-portal/internal/observability"
	"usergraph-portal/internal/session"
)

const housekeepingInterval = time.Minute

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A .env file is optional; real deployments use the environment.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Configuration loaded",
		zap.Strings("sources", cfg.LoadedFrom),
		zap.String("environment", string(cfg.Environment)),
		zap.String("backend_base_url", cfg.Backend.BaseURL),
	)

	// Initialize tracing if enabled
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracing(cfg.Tracing.ServiceName, string(cfg.Environment), cfg.Tracing.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Tracer shutdown error", zap.Error(err))
			}
		}()
	}

	// Wire the application
	metrics := observability.NewCollector(cfg.Metrics.Namespace)
	client := gateway.NewClient(cfg.Backend, cfg.Cache, logger, metrics)
	sessions := session.NewStore(gateway.Settings{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
	}, cfg.Session.IdleTTL)

	router := rest.NewRouter(cfg, client, sessions, logger, metrics)
	handler := router.Setup()

	// Reload backend defaults for new sessions when the config file changes.
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		watcher := config.NewWatcher(path, logger, func(updated *config.Config) {
			sessions.SetDefaults(gateway.Settings{
				BaseURL: updated.Backend.BaseURL,
				APIKey:  updated.Backend.APIKey,
			})
		})
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	// Periodic cleanup of expired cache entries and idle sessions.
	go func() {
		ticker := time.NewTicker(housekeepingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				client.SweepCache()
				sessions.Sweep()
			}
		}
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", string(cfg.Environment)),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}

func buildLogger(cfg config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
