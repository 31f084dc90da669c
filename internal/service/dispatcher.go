package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/unclebandit/crm-campaigns/internal/email"
	"github.com/unclebandit/crm-campaigns/internal/metrics"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/repository"
)

// Dispatcher resolves a campaign's audience, creates one tracking row per
// recipient and hands the rendered messages to the transport.
type Dispatcher struct {
	Recipients repository.RecipientRepositoryInterface
	Tracking   repository.TrackingRepositoryInterface
	Renderer   email.Renderer
	Transport  email.Transport
	Clock      Clock
	Log        *zap.Logger
}

// Dispatch returns the number of distinct recipients the campaign went to.
// Tracking rows are created idempotently, so a re-run for the same campaign
// never duplicates them.
func (d *Dispatcher) Dispatch(ctx context.Context, c model.Campaign, t model.Template) (int, error) {
	recipients, err := d.Recipients.ListBySegment(ctx, c.Segment)
	if err != nil {
		return 0, fmt.Errorf("resolve recipients for %s: %w", c.Segment, err)
	}

	now := resolveClock(d.Clock).Now()
	seen := make(map[string]bool, len(recipients))
	msgs := make([]*gomail.Message, 0, len(recipients))

	for _, rc := range recipients {
		addr := model.NormalizeEmail(rc.Email)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true

		rec := &model.TrackingRecord{CampaignID: c.ID, RecipientEmail: addr, CreatedAt: now}
		if _, err := d.Tracking.CreateIfAbsent(ctx, rec); err != nil {
			return 0, fmt.Errorf("create tracking record for %s: %w", addr, err)
		}
		msgs = append(msgs, d.Renderer.Render(t, c, rc))
	}

	if err := d.Transport.Send(ctx, msgs); err != nil {
		return 0, fmt.Errorf("deliver campaign: %w", err)
	}

	metrics.RecipientsDispatched.Add(float64(len(msgs)))
	resolveLogger(d.Log).Info("campaign dispatched",
		zap.String("campaign_id", c.ID),
		zap.String("segment", string(c.Segment)),
		zap.Int("recipients", len(msgs)),
	)
	return len(msgs), nil
}
