package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

type TrackingRepositoryInterface interface {
	// CreateIfAbsent inserts rec unless a row for the same (campaign, recipient)
	// already exists. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, rec *model.TrackingRecord) (bool, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]model.TrackingRecord, error)
	// MarkStatus sets the flag for status and stamps its time in one conditional
	// write, leaving rows where the flag is already set untouched. changed
	// reports whether this call set the flag.
	MarkStatus(ctx context.Context, campaignID, email string, status model.TrackingStatus, at time.Time) (rec *model.TrackingRecord, changed bool, err error)
}

type TrackingRepository struct {
	DB *sql.DB
}

const trackingColumns = `id, campaign_id, recipient_email, opened, clicked, bounced, unsubscribed,
        opened_at, clicked_at, bounced_at, unsubscribed_at, created_at`

// Whitelisted flag columns; status never reaches SQL text any other way.
var trackingFlagColumns = map[model.TrackingStatus]string{
	model.TrackingOpened:       "opened",
	model.TrackingClicked:      "clicked",
	model.TrackingBounced:      "bounced",
	model.TrackingUnsubscribed: "unsubscribed",
}

// Idempotent insert
func (r *TrackingRepository) CreateIfAbsent(ctx context.Context, rec *model.TrackingRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.RecipientEmail = model.NormalizeEmail(rec.RecipientEmail)
	query := `
        INSERT INTO email_tracking (id, campaign_id, recipient_email, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (campaign_id, recipient_email) DO NOTHING
    `
	res, err := r.DB.ExecContext(ctx, query, rec.ID, rec.CampaignID, rec.RecipientEmail, rec.CreatedAt)
	if err != nil {
		return false, appErrors.FromStore(err, "tracking record")
	}
	return affected(res)
}

func (r *TrackingRepository) ListByCampaign(ctx context.Context, campaignID string) ([]model.TrackingRecord, error) {
	if !validID(campaignID) {
		return []model.TrackingRecord{}, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+trackingColumns+` FROM email_tracking WHERE campaign_id=$1 ORDER BY recipient_email`, campaignID)
	if err != nil {
		return nil, appErrors.FromStore(err, "tracking record")
	}
	defer rows.Close()

	records := []model.TrackingRecord{}
	for rows.Next() {
		rec, err := scanTracking(rows)
		if err != nil {
			return nil, appErrors.FromStore(err, "tracking record")
		}
		records = append(records, *rec)
	}
	return records, appErrors.FromStore(rows.Err(), "tracking record")
}

func (r *TrackingRepository) MarkStatus(ctx context.Context, campaignID, email string, status model.TrackingStatus, at time.Time) (*model.TrackingRecord, bool, error) {
	col, ok := trackingFlagColumns[status]
	if !ok {
		return nil, false, appErrors.NewValidation("status", fmt.Sprintf("unknown tracking status %q", status))
	}
	email = model.NormalizeEmail(email)
	if !validID(campaignID) {
		return nil, false, appErrors.NewNotFound("tracking record", campaignID+"/"+email)
	}

	update := fmt.Sprintf(`
        UPDATE email_tracking
        SET %[1]s = TRUE, %[1]s_at = $3
        WHERE campaign_id=$1 AND recipient_email=$2 AND %[1]s = FALSE
    `, col)
	res, err := r.DB.ExecContext(ctx, update, campaignID, email, at)
	if err != nil {
		return nil, false, appErrors.FromStore(err, "tracking record")
	}
	changed, err := affected(res)
	if err != nil {
		return nil, false, err
	}

	row := r.DB.QueryRowContext(ctx,
		`SELECT `+trackingColumns+` FROM email_tracking WHERE campaign_id=$1 AND recipient_email=$2`, campaignID, email)
	rec, err := scanTracking(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.NewNotFound("tracking record", campaignID+"/"+email)
		}
		return nil, false, appErrors.FromStore(err, "tracking record")
	}
	return rec, changed, nil
}

func scanTracking(s scanner) (*model.TrackingRecord, error) {
	var rec model.TrackingRecord
	err := s.Scan(
		&rec.ID, &rec.CampaignID, &rec.RecipientEmail,
		&rec.Opened, &rec.Clicked, &rec.Bounced, &rec.Unsubscribed,
		&rec.OpenedAt, &rec.ClickedAt, &rec.BouncedAt, &rec.UnsubscribedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ TrackingRepositoryInterface = (*TrackingRepository)(nil)
