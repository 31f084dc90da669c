// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/metrics"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/queue"
	"github.com/unclebandit/crm-campaigns/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	TemplateRepo repository.TemplateRepositoryInterface
	Dispatcher   *Dispatcher
	Queue        queue.Queue
	Clock        Clock
	Log          *zap.Logger

	// StrictSegmentCheck re-checks at send time that the template was
	// written for the campaign's segment.
	StrictSegmentCheck bool
}

// Result struct for SendCampaign
type SendCampaignResult struct {
	CampaignID string               `json:"campaign_id"`
	Status     model.CampaignStatus `json:"status"`
	Recipients int                  `json:"recipients"`
	SentAt     *time.Time           `json:"sent_at,omitempty"`
}

func (s *CampaignService) CreateCampaign(ctx context.Context, name, templateID string, segment model.Segment, status model.CampaignStatus, scheduledAt *time.Time) (*model.Campaign, error) {
	now := resolveClock(s.Clock).Now()
	if status == "" {
		status = model.CampaignDraft
	}
	if status == model.CampaignDraft {
		scheduledAt = nil
	}
	c := &model.Campaign{
		Name:        strings.TrimSpace(name),
		TemplateID:  strings.TrimSpace(templateID),
		Segment:     segment,
		Status:      status,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateCampaign(*c, now); err != nil {
		return nil, err
	}
	t, err := s.TemplateRepo.GetByID(ctx, c.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := matchSegment(c, t); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	resolveLogger(s.Log).Info("campaign created",
		zap.String("campaign_id", c.ID),
		zap.String("status", string(c.Status)),
	)
	return c, nil
}

// UpdateCampaign applies patch to a draft or scheduled campaign. The write
// is conditional on the status read here, so a concurrent send wins.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, patch model.CampaignPatch) (*model.Campaign, error) {
	current, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != model.CampaignDraft && current.Status != model.CampaignScheduled {
		return nil, appErrors.NewInvalidState("only draft or scheduled campaigns can be edited, campaign is %s", current.Status)
	}

	now := resolveClock(s.Clock).Now()
	next := patch.Apply(*current)
	next.Name = strings.TrimSpace(next.Name)
	next.TemplateID = strings.TrimSpace(next.TemplateID)
	if err := validateCampaign(next, now); err != nil {
		return nil, err
	}
	if next.TemplateID != current.TemplateID || next.Segment != current.Segment {
		t, err := s.TemplateRepo.GetByID(ctx, next.TemplateID)
		if err != nil {
			return nil, err
		}
		if err := matchSegment(&next, t); err != nil {
			return nil, err
		}
	}

	next.UpdatedAt = now
	ok, err := s.CampaignRepo.Update(ctx, &next, current.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewInvalidState("campaign %s changed while it was being edited, reload and try again", id)
	}
	return &next, nil
}

// DeleteCampaign removes the campaign row only. Tracking rows are kept as history.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.CampaignRepo.Delete(ctx, id); err != nil {
		return err
	}
	resolveLogger(s.Log).Info("campaign deleted", zap.String("campaign_id", id))
	return nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

func (s *CampaignService) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return s.CampaignRepo.List(ctx)
}

func (s *CampaignService) ListCampaignsByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error) {
	if !status.Valid() {
		return nil, appErrors.NewValidation("status", fmt.Sprintf("unknown campaign status %q", status))
	}
	return s.CampaignRepo.ListByStatus(ctx, status)
}

// SendCampaign dispatches a draft campaign now. Any other status is refused
// without touching the campaign.
func (s *CampaignService) SendCampaign(ctx context.Context, id string) (*SendCampaignResult, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft {
		return nil, appErrors.NewInvalidState("only draft campaigns can be sent, campaign is %s", c.Status)
	}
	return s.launch(ctx, c, model.CampaignDraft)
}

// CancelCampaign stops a draft or scheduled campaign from ever being sent.
func (s *CampaignService) CancelCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft && c.Status != model.CampaignScheduled {
		return nil, appErrors.NewInvalidState("only draft or scheduled campaigns can be cancelled, campaign is %s", c.Status)
	}

	now := resolveClock(s.Clock).Now()
	ok, err := s.CampaignRepo.Transition(ctx, id, c.Status, model.CampaignCancelled, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewInvalidState("campaign %s is no longer %s", id, c.Status)
	}
	s.publish("campaign.cancelled", id, model.CampaignCancelled, 0, nil, now)
	return s.CampaignRepo.GetByID(ctx, id)
}

// DispatchDue launches every scheduled campaign whose time has come and
// returns how many reached sent.
func (s *CampaignService) DispatchDue(ctx context.Context) (int, error) {
	scheduled, err := s.CampaignRepo.ListByStatus(ctx, model.CampaignScheduled)
	if err != nil {
		return 0, err
	}

	now := resolveClock(s.Clock).Now()
	sent := 0
	for i := range scheduled {
		c := &scheduled[i]
		if c.ScheduledAt == nil || c.ScheduledAt.After(now) {
			continue
		}
		if _, err := s.launch(ctx, c, model.CampaignScheduled); err != nil {
			if appErrors.IsInvalidState(err) {
				continue
			}
			if appErrors.IsValidation(err) || appErrors.IsNotFound(err) {
				// Retrying cannot help: the template drifted or is gone.
				s.abandon(ctx, c.ID, err)
				continue
			}
			resolveLogger(s.Log).Error("scheduled dispatch failed", zap.String("campaign_id", c.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// FailStuck moves campaigns that have sat in sending for longer than
// timeout to failed.
func (s *CampaignService) FailStuck(ctx context.Context, timeout time.Duration) (int, error) {
	sending, err := s.CampaignRepo.ListByStatus(ctx, model.CampaignSending)
	if err != nil {
		return 0, err
	}

	now := resolveClock(s.Clock).Now()
	failed := 0
	for _, c := range sending {
		if now.Sub(c.UpdatedAt) < timeout {
			continue
		}
		ok, err := s.CampaignRepo.Transition(ctx, c.ID, model.CampaignSending, model.CampaignFailed, now)
		if err != nil {
			return failed, err
		}
		if !ok {
			continue
		}
		failed++
		metrics.CampaignFailures.Inc()
		resolveLogger(s.Log).Warn("campaign stuck in sending marked failed",
			zap.String("campaign_id", c.ID),
			zap.Time("sending_since", c.UpdatedAt),
		)
		s.publish("campaign.failed", c.ID, model.CampaignFailed, 0, errors.New("sending timed out"), now)
	}
	return failed, nil
}

// launch runs the from -> sending -> sent lifecycle. sending is persisted
// before dispatch starts, and a failure after that point leaves the
// campaign failed rather than back in from.
func (s *CampaignService) launch(ctx context.Context, c *model.Campaign, from model.CampaignStatus) (*SendCampaignResult, error) {
	log := resolveLogger(s.Log).With(zap.String("campaign_id", c.ID))
	clock := resolveClock(s.Clock)

	t, err := s.TemplateRepo.GetByID(ctx, c.TemplateID)
	if err != nil {
		return nil, err
	}
	if s.StrictSegmentCheck {
		if err := matchSegment(c, t); err != nil {
			return nil, err
		}
	}

	ok, err := s.CampaignRepo.Transition(ctx, c.ID, from, model.CampaignSending, clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewInvalidState("campaign %s is no longer %s", c.ID, from)
	}
	log.Info("campaign sending", zap.String("from_status", string(from)))
	s.publish("campaign.sending", c.ID, model.CampaignSending, 0, nil, clock.Now())

	started := time.Now()
	recipients, err := s.Dispatcher.Dispatch(ctx, *c, *t)
	metrics.DispatchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.fail(ctx, c.ID, err)
		return nil, fmt.Errorf("send campaign %s: %w", c.ID, err)
	}

	sentAt := clock.Now()
	ok, err = s.CampaignRepo.Transition(ctx, c.ID, model.CampaignSending, model.CampaignSent, sentAt)
	if err != nil {
		s.fail(ctx, c.ID, err)
		return nil, fmt.Errorf("mark campaign %s sent: %w", c.ID, err)
	}
	if !ok {
		return nil, appErrors.NewInvalidState("campaign %s left the sending state during dispatch", c.ID)
	}

	metrics.CampaignsSent.Inc()
	log.Info("campaign sent", zap.Int("recipients", recipients))
	s.publish("campaign.sent", c.ID, model.CampaignSent, recipients, nil, sentAt)

	return &SendCampaignResult{
		CampaignID: c.ID,
		Status:     model.CampaignSent,
		Recipients: recipients,
		SentAt:     &sentAt,
	}, nil
}

// abandon moves a scheduled campaign that can never be launched to failed.
func (s *CampaignService) abandon(ctx context.Context, id string, cause error) {
	log := resolveLogger(s.Log).With(zap.String("campaign_id", id))
	now := resolveClock(s.Clock).Now()

	ok, err := s.CampaignRepo.Transition(ctx, id, model.CampaignScheduled, model.CampaignFailed, now)
	if err != nil {
		log.Error("could not mark scheduled campaign failed", zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	if ok {
		metrics.CampaignFailures.Inc()
		log.Error("scheduled campaign cannot be sent", zap.Error(cause))
		s.publish("campaign.failed", id, model.CampaignFailed, 0, cause, now)
	}
}

func (s *CampaignService) fail(ctx context.Context, id string, cause error) {
	log := resolveLogger(s.Log).With(zap.String("campaign_id", id))
	now := resolveClock(s.Clock).Now()

	ok, err := s.CampaignRepo.Transition(context.WithoutCancel(ctx), id, model.CampaignSending, model.CampaignFailed, now)
	if err != nil {
		log.Error("could not mark campaign failed, it stays in sending", zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	if ok {
		metrics.CampaignFailures.Inc()
		log.Error("campaign failed", zap.Error(cause))
		s.publish("campaign.failed", id, model.CampaignFailed, 0, cause, now)
	}
}

func (s *CampaignService) publish(eventType, id string, status model.CampaignStatus, recipients int, cause error, at time.Time) {
	if s.Queue == nil {
		return
	}
	ev := queue.CampaignEvent{Type: eventType, CampaignID: id, Status: status, Recipients: recipients, At: at}
	if cause != nil {
		ev.Error = cause.Error()
	}
	if err := s.Queue.Publish(queue.TopicCampaignEvents, ev); err != nil && !errors.Is(err, queue.ErrNoSubscribers) {
		resolveLogger(s.Log).Warn("failed to publish campaign event",
			zap.String("campaign_id", id),
			zap.String("event", eventType),
			zap.Error(err),
		)
	}
}

// matchSegment requires a campaign to target the audience its template was written for.
func matchSegment(c *model.Campaign, t *model.Template) error {
	if c.Segment == t.Segment {
		return nil
	}
	return appErrors.NewValidation("segment",
		fmt.Sprintf("campaign segment %s does not match template segment %s", c.Segment, t.Segment))
}
