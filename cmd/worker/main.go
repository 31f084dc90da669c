// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/app"
	"github.com/unclebandit/crm-campaigns/internal/config"
	"github.com/unclebandit/crm-campaigns/internal/queue"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, _, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.StoreKind() != config.StorePostgres {
		logger.Fatal("the worker needs a shared store, set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// Tracking events published by the pixel and link handlers.
	if err := a.Queue.Subscribe(queue.TopicTrackingEvents, a.Tracking.HandleEvent); err != nil {
		logger.Fatal("failed to subscribe to tracking events", zap.Error(err))
	}

	// Campaign lifecycle events are only logged here.
	err = a.Queue.Subscribe(queue.TopicCampaignEvents, func(body []byte) error {
		var ev queue.CampaignEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			logger.Warn("invalid campaign event", zap.Error(err))
			return nil
		}
		logger.Info("campaign event",
			zap.String("type", ev.Type),
			zap.String("campaign_id", ev.CampaignID),
			zap.String("status", string(ev.Status)),
			zap.Int("recipients", ev.Recipients),
			zap.String("error", ev.Error),
		)
		return nil
	})
	if err != nil {
		logger.Fatal("failed to subscribe to campaign events", zap.Error(err))
	}

	logger.Info("worker running, waiting for messages", zap.Bool("amqp", a.AMQP))
	a.Worker(logger).Run(ctx)
}
