package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/analytics"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/repository"
)

type AnalyticsService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	TrackingRepo  repository.TrackingRepositoryInterface
	AnalyticsRepo repository.AnalyticsRepositoryInterface
	Clock         Clock
	Log           *zap.Logger
}

// GetAnalytics always recomputes from tracking rows; snapshots are never read here.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, r analytics.Range) (*analytics.Report, error) {
	campaigns, err := s.CampaignRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	since := r.Since(resolveClock(s.Clock).Now())
	campaigns = analytics.InWindow(campaigns, since)

	records := make(map[string][]model.TrackingRecord, len(campaigns))
	for _, c := range campaigns {
		recs, err := s.TrackingRepo.ListByCampaign(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		records[c.ID] = recs
	}

	report := analytics.Build(r, since, campaigns, records)
	return &report, nil
}

// RefreshSnapshots rewrites the daily rollup of every sent campaign for date.
func (s *AnalyticsService) RefreshSnapshots(ctx context.Context, date time.Time) (int, error) {
	sent, err := s.CampaignRepo.ListByStatus(ctx, model.CampaignSent)
	if err != nil {
		return 0, err
	}

	now := resolveClock(s.Clock).Now()
	for i, c := range sent {
		recs, err := s.TrackingRepo.ListByCampaign(ctx, c.ID)
		if err != nil {
			return i, err
		}
		snap := analytics.Snapshot(c.ID, date, recs, now)
		if err := s.AnalyticsRepo.UpsertSnapshot(ctx, &snap); err != nil {
			return i, err
		}
	}

	resolveLogger(s.Log).Info("analytics snapshots refreshed",
		zap.Int("campaigns", len(sent)),
		zap.Time("date", date),
	)
	return len(sent), nil
}

func (s *AnalyticsService) Snapshots(ctx context.Context, campaignID string) ([]model.AnalyticsSnapshot, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.AnalyticsRepo.ListSnapshots(ctx, campaignID)
}
