package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/unclebandit/crm-campaigns/internal/analytics"
	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/metrics"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/queue"
	"github.com/unclebandit/crm-campaigns/internal/repository"
)

type TrackingService struct {
	TrackingRepo repository.TrackingRepositoryInterface
	Clock        Clock
	Log          *zap.Logger
}

// CampaignTracking is the aggregated view of one campaign's tracking rows.
type CampaignTracking struct {
	CampaignID string `json:"campaign_id"`
	analytics.Stats
}

func (s *TrackingService) Records(ctx context.Context, campaignID string) ([]model.TrackingRecord, error) {
	return s.TrackingRepo.ListByCampaign(ctx, campaignID)
}

func (s *TrackingService) CampaignTracking(ctx context.Context, campaignID string) (*CampaignTracking, error) {
	records, err := s.TrackingRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignTracking{CampaignID: campaignID, Stats: analytics.Count(records).Stats()}, nil
}

// UpdateStatus records status for one recipient. Repeating a call is a
// no-op: the first timestamp is kept and no flag is ever cleared.
func (s *TrackingService) UpdateStatus(ctx context.Context, campaignID, email string, status model.TrackingStatus) (*model.TrackingRecord, error) {
	if err := validateTrackingUpdate(campaignID, email, status); err != nil {
		return nil, err
	}

	now := resolveClock(s.Clock).Now()
	rec, changed, err := s.TrackingRepo.MarkStatus(ctx, campaignID, email, status, now)
	if err != nil {
		metrics.TrackingUpdates.WithLabelValues(string(status), "error").Inc()
		return nil, err
	}

	result := "duplicate"
	if changed {
		result = "applied"
	}
	metrics.TrackingUpdates.WithLabelValues(string(status), result).Inc()
	resolveLogger(s.Log).Debug("tracking status recorded",
		zap.String("campaign_id", campaignID),
		zap.String("status", string(status)),
		zap.String("result", result),
	)
	return rec, nil
}

// HandleEvent consumes a queue.TrackingEvent. Events that can never succeed
// are dropped; store failures are returned so the queue redelivers them.
func (s *TrackingService) HandleEvent(body []byte) error {
	var ev queue.TrackingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		resolveLogger(s.Log).Warn("dropping malformed tracking event", zap.Error(err))
		return nil
	}

	_, err := s.UpdateStatus(context.Background(), ev.CampaignID, ev.RecipientEmail, ev.Status)
	if err != nil && (appErrors.IsValidation(err) || appErrors.IsNotFound(err)) {
		resolveLogger(s.Log).Warn("dropping tracking event",
			zap.String("campaign_id", ev.CampaignID),
			zap.String("status", string(ev.Status)),
			zap.Error(err),
		)
		return nil
	}
	return err
}

type trackingInput struct {
	CampaignID     string               `json:"campaign_id" validate:"required,uuid"`
	RecipientEmail string               `json:"recipient_email" validate:"required,email"`
	Status         model.TrackingStatus `json:"status" validate:"required,oneof=opened clicked bounced unsubscribed"`
}

func validateTrackingUpdate(campaignID, email string, status model.TrackingStatus) error {
	return validateStruct(trackingInput{
		CampaignID:     campaignID,
		RecipientEmail: model.NormalizeEmail(email),
		Status:         status,
	})
}
