package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

// AnalyticsRepositoryInterface stores recomputable daily rollups.
type AnalyticsRepositoryInterface interface {
	UpsertSnapshot(ctx context.Context, snap *model.AnalyticsSnapshot) error
	ListSnapshots(ctx context.Context, campaignID string) ([]model.AnalyticsSnapshot, error)
}

type AnalyticsRepository struct {
	DB *sql.DB
}

func (r *AnalyticsRepository) UpsertSnapshot(ctx context.Context, snap *model.AnalyticsSnapshot) error {
	query := `
        INSERT INTO campaign_analytics (campaign_id, date, opens, clicks, conversions, bounces, unsubscribes, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (campaign_id, date) DO UPDATE
        SET opens=EXCLUDED.opens, clicks=EXCLUDED.clicks, conversions=EXCLUDED.conversions,
            bounces=EXCLUDED.bounces, unsubscribes=EXCLUDED.unsubscribes, updated_at=EXCLUDED.updated_at
    `
	_, err := r.DB.ExecContext(ctx, query,
		snap.CampaignID, snap.Date, snap.Opens, snap.Clicks, snap.Conversions, snap.Bounces, snap.Unsubscribes, snap.UpdatedAt)
	return appErrors.FromStore(err, "analytics snapshot")
}

func (r *AnalyticsRepository) ListSnapshots(ctx context.Context, campaignID string) ([]model.AnalyticsSnapshot, error) {
	if !validID(campaignID) {
		return []model.AnalyticsSnapshot{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, `
        SELECT campaign_id, date, opens, clicks, conversions, bounces, unsubscribes, updated_at
        FROM campaign_analytics
        WHERE campaign_id=$1
        ORDER BY date`, campaignID)
	if err != nil {
		return nil, appErrors.FromStore(err, "analytics snapshot")
	}
	defer rows.Close()

	snaps := []model.AnalyticsSnapshot{}
	for rows.Next() {
		var s model.AnalyticsSnapshot
		if err := rows.Scan(&s.CampaignID, &s.Date, &s.Opens, &s.Clicks, &s.Conversions, &s.Bounces, &s.Unsubscribes, &s.UpdatedAt); err != nil {
			return nil, appErrors.FromStore(err, "analytics snapshot")
		}
		snaps = append(snaps, s)
	}
	return snaps, appErrors.FromStore(rows.Err(), "analytics snapshot")
}

var _ AnalyticsRepositoryInterface = (*AnalyticsRepository)(nil)
