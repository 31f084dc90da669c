// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignCancelled CampaignStatus = "cancelled"
	CampaignFailed    CampaignStatus = "failed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignScheduled, CampaignSending, CampaignSent, CampaignCancelled, CampaignFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignSent || s == CampaignFailed || s == CampaignCancelled
}

type Campaign struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	TemplateID  string         `db:"template_id" json:"template_id"`
	Segment     Segment        `db:"segment" json:"segment"`
	Status      CampaignStatus `db:"status" json:"status"`
	ScheduledAt *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt      *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// CampaignPatch carries the fields of a partial campaign update. Nil means
// unchanged, except that a draft result never keeps a schedule.
type CampaignPatch struct {
	Name        *string         `json:"name,omitempty"`
	TemplateID  *string         `json:"template_id,omitempty"`
	Segment     *Segment        `json:"segment,omitempty"`
	Status      *CampaignStatus `json:"status,omitempty"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
}

func (p CampaignPatch) Apply(c Campaign) Campaign {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.TemplateID != nil {
		c.TemplateID = *p.TemplateID
	}
	if p.Segment != nil {
		c.Segment = *p.Segment
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.ScheduledAt != nil {
		c.ScheduledAt = p.ScheduledAt
	}
	if c.Status == CampaignDraft {
		c.ScheduledAt = nil
	}
	return c
}
