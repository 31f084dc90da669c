package queue

import (
	"time"

	"github.com/unclebandit/crm-campaigns/internal/model"
)

// CampaignEvent is published on every lifecycle transition the service makes.
type CampaignEvent struct {
	Type       string               `json:"type"`
	CampaignID string               `json:"campaign_id"`
	Status     model.CampaignStatus `json:"status"`
	Recipients int                  `json:"recipients,omitempty"`
	Error      string               `json:"error,omitempty"`
	At         time.Time            `json:"at"`
}

// TrackingEvent is consumed from TopicTrackingEvents.
type TrackingEvent struct {
	CampaignID     string               `json:"campaign_id"`
	RecipientEmail string               `json:"recipient_email"`
	Status         model.TrackingStatus `json:"status"`
}
