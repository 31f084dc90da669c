// internal/model/tracking.go
package model

import (
	"strings"
	"time"
)

type TrackingStatus string

const (
	TrackingOpened       TrackingStatus = "opened"
	TrackingClicked      TrackingStatus = "clicked"
	TrackingBounced      TrackingStatus = "bounced"
	TrackingUnsubscribed TrackingStatus = "unsubscribed"
)

func (s TrackingStatus) Valid() bool {
	switch s {
	case TrackingOpened, TrackingClicked, TrackingBounced, TrackingUnsubscribed:
		return true
	}
	return false
}

// TrackingRecord is the engagement ledger row for one (campaign, recipient) pair.
// Flags only ever go from false to true; the matching *_at keeps the first occurrence.
type TrackingRecord struct {
	ID             string     `db:"id" json:"id"`
	CampaignID     string     `db:"campaign_id" json:"campaign_id"`
	RecipientEmail string     `db:"recipient_email" json:"recipient_email"`
	Opened         bool       `db:"opened" json:"opened"`
	Clicked        bool       `db:"clicked" json:"clicked"`
	Bounced        bool       `db:"bounced" json:"bounced"`
	Unsubscribed   bool       `db:"unsubscribed" json:"unsubscribed"`
	OpenedAt       *time.Time `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt      *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
	BouncedAt      *time.Time `db:"bounced_at" json:"bounced_at,omitempty"`
	UnsubscribedAt *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Mark sets the flag for status if it is not already set and reports whether anything changed.
func (r *TrackingRecord) Mark(status TrackingStatus, at time.Time) bool {
	flag, stamp := r.fields(status)
	if flag == nil || *flag {
		return false
	}
	*flag = true
	t := at
	*stamp = &t
	return true
}

func (r *TrackingRecord) Has(status TrackingStatus) bool {
	flag, _ := r.fields(status)
	return flag != nil && *flag
}

func (r *TrackingRecord) fields(status TrackingStatus) (*bool, **time.Time) {
	switch status {
	case TrackingOpened:
		return &r.Opened, &r.OpenedAt
	case TrackingClicked:
		return &r.Clicked, &r.ClickedAt
	case TrackingBounced:
		return &r.Bounced, &r.BouncedAt
	case TrackingUnsubscribed:
		return &r.Unsubscribed, &r.UnsubscribedAt
	}
	return nil, nil
}

// NormalizeEmail is the canonical form used for the (campaign, recipient) key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
