// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/app"
	"github.com/unclebandit/crm-campaigns/internal/config"
	"github.com/unclebandit/crm-campaigns/internal/controller"
	"github.com/unclebandit/crm-campaigns/internal/handler"
	"github.com/unclebandit/crm-campaigns/internal/metrics"
)

func main() {
	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, dotenv, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if !dotenv {
		logger.Info("no .env file found, relying on OS environment variables")
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------------------------------------------
	// Store, queue, services
	// ------------------------------------------------
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Background jobs
	// ------------------------------------------------
	// The memory store lives in this process, so nothing else can run the
	// scheduler against it.
	var wg sync.WaitGroup
	if cfg.StoreKind() == config.StoreMemory {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Worker(logger.Named("worker")).Run(ctx)
		}()
	}

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	tracking := &handler.TrackingHandler{Updater: a.Tracking, Secret: a.TrackingSecret, Log: logger}
	if a.AMQP {
		tracking.Queue = a.Queue
	}
	router := controller.NewRouter(controller.Services{
		Templates: a.Templates,
		Campaigns: a.Campaigns,
		Tracking:  a.Tracking,
		Analytics: a.Analytics,
	}, tracking, logger)

	apiServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.HTTPPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", zap.Error(err))
	}
	wg.Wait()
	logger.Info("server stopped")
}
