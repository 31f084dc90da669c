// internal/model/analytics.go
package model

import "time"

// AnalyticsSnapshot is a daily rollup of tracking rows. It is a cache and can be
// recomputed from tracking records at any time.
type AnalyticsSnapshot struct {
	CampaignID   string    `db:"campaign_id" json:"campaign_id"`
	Date         time.Time `db:"date" json:"date"`
	Opens        int       `db:"opens" json:"opens"`
	Clicks       int       `db:"clicks" json:"clicks"`
	Conversions  int       `db:"conversions" json:"conversions"`
	Bounces      int       `db:"bounces" json:"bounces"`
	Unsubscribes int       `db:"unsubscribes" json:"unsubscribes"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
