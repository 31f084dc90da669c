package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker runs the background loops: due scheduled campaigns, campaigns
// stuck in sending, and the analytics snapshot refresh.
type Worker struct {
	Campaigns *CampaignService
	Analytics *AnalyticsService
	Clock     Clock
	Log       *zap.Logger

	SchedulerInterval   time.Duration
	StuckSendingTimeout time.Duration
	SnapshotInterval    time.Duration
}

// Constructor
func NewWorker(campaigns *CampaignService, analyticsSvc *AnalyticsService, logger *zap.Logger) *Worker {
	return &Worker{
		Campaigns:           campaigns,
		Analytics:           analyticsSvc,
		Log:                 logger,
		SchedulerInterval:   30 * time.Second,
		StuckSendingTimeout: 15 * time.Minute,
		SnapshotInterval:    time.Hour,
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	log := resolveLogger(w.Log)
	schedule := time.NewTicker(w.SchedulerInterval)
	defer schedule.Stop()

	var snapshots <-chan time.Time
	if w.Analytics != nil && w.SnapshotInterval > 0 {
		t := time.NewTicker(w.SnapshotInterval)
		defer t.Stop()
		snapshots = t.C
	}

	log.Info("worker started",
		zap.Duration("scheduler_interval", w.SchedulerInterval),
		zap.Duration("stuck_sending_timeout", w.StuckSendingTimeout),
	)
	w.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-schedule.C:
			w.Tick(ctx)
		case <-snapshots:
			w.RefreshSnapshots(ctx)
		}
	}
}

// Tick makes one scheduler and reconciler pass.
func (w *Worker) Tick(ctx context.Context) {
	log := resolveLogger(w.Log)

	if n, err := w.Campaigns.DispatchDue(ctx); err != nil {
		log.Error("scheduler pass failed", zap.Error(err))
	} else if n > 0 {
		log.Info("scheduled campaigns sent", zap.Int("count", n))
	}

	if w.StuckSendingTimeout > 0 {
		if n, err := w.Campaigns.FailStuck(ctx, w.StuckSendingTimeout); err != nil {
			log.Error("reconciler pass failed", zap.Error(err))
		} else if n > 0 {
			log.Warn("stuck campaigns failed", zap.Int("count", n))
		}
	}
}

func (w *Worker) RefreshSnapshots(ctx context.Context) {
	if w.Analytics == nil {
		return
	}
	if _, err := w.Analytics.RefreshSnapshots(ctx, resolveClock(w.Clock).Now()); err != nil {
		resolveLogger(w.Log).Error("snapshot refresh failed", zap.Error(err))
	}
}
