// Package app wires configuration into stores, queue and services for the binaries.
package app

import (
	"context"
	"crypto/rand"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/unclebandit/crm-campaigns/internal/config"
	"github.com/unclebandit/crm-campaigns/internal/db"
	"github.com/unclebandit/crm-campaigns/internal/email"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/queue"
	"github.com/unclebandit/crm-campaigns/internal/repository"
	"github.com/unclebandit/crm-campaigns/internal/repository/memory"
	"github.com/unclebandit/crm-campaigns/internal/service"
)

type App struct {
	Config *config.Config
	Repos  repository.Set
	Queue  queue.Queue
	// AMQP is set when Queue is backed by a broker.
	AMQP bool
	// TrackingSecret signs and verifies click links.
	TrackingSecret []byte

	Templates *service.TemplateService
	Campaigns *service.CampaignService
	Tracking  *service.TrackingService
	Analytics *service.AnalyticsService

	log     *zap.Logger
	closers []func() error
}

// DemoRecipients populate the memory store so a local run has an audience.
var DemoRecipients = []model.Recipient{
	{Email: "amina@example.com", FirstName: "Amina", LastName: "Otieno", Segment: model.SegmentNewLead},
	{Email: "brian@example.com", FirstName: "Brian", LastName: "Kamau", Segment: model.SegmentNewLead},
	{Email: "carol@example.com", FirstName: "Carol", LastName: "Wanjiru", Segment: model.SegmentInProcess},
	{Email: "daniel@example.com", FirstName: "Daniel", LastName: "Mwangi", Segment: model.SegmentClosedDeal},
	{Email: "esther@example.com", FirstName: "Esther", LastName: "Njeri", Segment: model.SegmentAbandoned},
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, log: logger}

	switch cfg.StoreKind() {
	case config.StorePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := db.Migrate(ctx, conn); err != nil {
			a.Close()
			return nil, err
		}
		a.Repos = repository.NewPostgres(conn)
	default:
		a.Repos = memory.NewStore(DemoRecipients).Repositories()
	}
	logger.Info("store selected", zap.String("store", cfg.StoreKind()))

	if cfg.AMQPURL != "" {
		q, err := queue.DialAMQP(cfg.AMQPURL, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
		a.closers = append(a.closers, q.Close)
		a.Queue = q
		a.AMQP = true
	} else {
		a.Queue = queue.NewInMemoryQueue(logger)
	}

	secret, err := trackingSecret(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.TrackingSecret = secret

	clock := service.SystemClock{}
	limit := rate.Inf
	if cfg.DispatchRate > 0 {
		limit = rate.Limit(cfg.DispatchRate)
	}

	a.Templates = &service.TemplateService{
		TemplateRepo: a.Repos.Templates,
		CampaignRepo: a.Repos.Campaigns,
		Clock:        clock,
		Log:          logger,
	}
	a.Campaigns = &service.CampaignService{
		CampaignRepo: a.Repos.Campaigns,
		TemplateRepo: a.Repos.Templates,
		Dispatcher: &service.Dispatcher{
			Recipients: a.Repos.Recipients,
			Tracking:   a.Repos.Tracking,
			Renderer:   email.Renderer{From: cfg.MailFrom, TrackingBaseURL: cfg.TrackingBaseURL, Secret: secret},
			Transport: &email.SimulatedSender{
				Delay:   cfg.DispatchDelay,
				Limiter: rate.NewLimiter(limit, max(cfg.DispatchRate, 1)),
				Log:     logger,
			},
			Clock: clock,
			Log:   logger,
		},
		Queue:              a.Queue,
		Clock:              clock,
		Log:                logger,
		StrictSegmentCheck: cfg.StrictSegmentCheck,
	}
	a.Tracking = &service.TrackingService{TrackingRepo: a.Repos.Tracking, Clock: clock, Log: logger}
	a.Analytics = &service.AnalyticsService{
		CampaignRepo:  a.Repos.Campaigns,
		TrackingRepo:  a.Repos.Tracking,
		AnalyticsRepo: a.Repos.Analytics,
		Clock:         clock,
		Log:           logger,
	}
	return a, nil
}

// trackingSecret returns the configured secret, or a random one that only
// holds for this process when none is set.
func trackingSecret(cfg *config.Config, logger *zap.Logger) ([]byte, error) {
	if cfg.TrackingSecret != "" {
		return []byte(cfg.TrackingSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate tracking secret: %w", err)
	}
	logger.Warn("TRACKING_SECRET not set, click links are only valid for this process")
	return secret, nil
}

// Worker returns the background loop configured from a.Config.
func (a *App) Worker(logger *zap.Logger) *service.Worker {
	w := service.NewWorker(a.Campaigns, a.Analytics, logger)
	w.SchedulerInterval = a.Config.SchedulerInterval
	w.StuckSendingTimeout = a.Config.StuckSendingTimeout
	w.SnapshotInterval = a.Config.SnapshotInterval
	return w
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
