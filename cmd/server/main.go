package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/api"
	"github.com/Kamar-Folarin/fleet-sync/internal/config"
	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/events"
	"github.com/Kamar-Folarin/fleet-sync/internal/metrics"
	"github.com/Kamar-Folarin/fleet-sync/internal/reconcile"
	"github.com/Kamar-Folarin/fleet-sync/internal/remote"
	"github.com/Kamar-Folarin/fleet-sync/internal/scheduler"
	"github.com/Kamar-Folarin/fleet-sync/internal/sync"
	"github.com/Kamar-Folarin/fleet-sync/internal/webhook"
)

const shutdownTimeout = 30 * time.Second

// @title Fleet Sync API
// @version 1.0
// @description Control plane for synchronizing fleet data from the onboarding portal into the maintenance portal
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	} else {
		logger.SetLevel(level)
	}
	if level := logger.GetLevel(); level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	store, err := db.NewPostgresStore(cfg.DBConnectionString)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations with retry logic
	if err := retry(3, 5*time.Second, store.Migrate); err != nil {
		logger.Fatalf("Failed to run migrations after retries: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize services
	bus := events.NewBus(cfg.Sync.EventBuffer, logger, m)
	client := remote.NewClient(cfg.Remote, logger)
	reconciler := reconcile.NewReconciler(store, bus, m, logger, cfg.Sync.Batch())
	orchestrator := sync.NewOrchestrator(client, reconciler, sync.NewStatusManager(store), bus, logger,
		sync.WithMetrics(m))
	webhooks := webhook.NewProcessor(store, reconciler, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(orchestrator, scheduler.Settings{
		Interval: cfg.Sync.Interval,
		Enabled:  cfg.Sync.AutoSyncEnabled,
	}, logger)
	sched.Start(ctx)

	handler := api.NewHandler(orchestrator, webhooks, client, sched, store, bus, store, logger,
		api.WithKeepAlive(cfg.Sync.KeepAliveInterval))
	router := api.SetupRouter(handler, api.RouterConfig{
		APIToken: cfg.APIToken,
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Logger:   logger,
	})

	// Create HTTP server; no write timeout because /sync/updates is long-lived
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     api.WithCORS(router),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	if err := webhooks.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Webhook processing did not finish")
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Sync run did not finish")
	}
	if err := store.Close(); err != nil {
		logger.WithError(err).Error("Failed to close database")
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
