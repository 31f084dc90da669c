package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	// Update overwrites the editable fields of c, but only while the stored
	// status still equals expected. It reports whether the row was written.
	Update(ctx context.Context, c *model.Campaign, expected model.CampaignStatus) (bool, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context) ([]model.Campaign, error)
	ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error)
	ListByTemplate(ctx context.Context, templateID string) ([]model.Campaign, error)
	// Transition moves a campaign from one status to another as a single
	// conditional write. Moving to sent also stamps sent_at. It reports false,
	// not an error, when the campaign is gone or no longer in from.
	Transition(ctx context.Context, id string, from, to model.CampaignStatus, at time.Time) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, template_id, segment, status, scheduled_at, sent_at, created_at, updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `
        INSERT INTO campaigns (id, name, template_id, segment, status, scheduled_at, sent_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.Name, c.TemplateID, c.Segment, c.Status, c.ScheduledAt, c.SentAt, c.CreatedAt, c.UpdatedAt)
	return appErrors.FromStore(err, "campaign")
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign, expected model.CampaignStatus) (bool, error) {
	query := `
        UPDATE campaigns
        SET name=$1, template_id=$2, segment=$3, status=$4, scheduled_at=$5, updated_at=$6
        WHERE id=$7 AND status=$8
    `
	res, err := r.DB.ExecContext(ctx, query,
		c.Name, c.TemplateID, c.Segment, c.Status, c.ScheduledAt, c.UpdatedAt, c.ID, expected)
	if err != nil {
		return false, appErrors.FromStore(err, "campaign")
	}
	return affected(res)
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.NewNotFound("campaign", id)
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return appErrors.FromStore(err, "campaign")
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewNotFound("campaign", id)
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	if !validID(id) {
		return nil, appErrors.NewNotFound("campaign", id)
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id)
	c, err := scanCampaign(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("campaign", id)
		}
		return nil, appErrors.FromStore(err, "campaign")
	}
	return c, nil
}

func (r *CampaignRepository) List(ctx context.Context) ([]model.Campaign, error) {
	return r.query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
}

func (r *CampaignRepository) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error) {
	return r.query(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE status=$1 ORDER BY created_at DESC`, status)
}

func (r *CampaignRepository) ListByTemplate(ctx context.Context, templateID string) ([]model.Campaign, error) {
	if !validID(templateID) {
		return []model.Campaign{}, nil
	}
	return r.query(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE template_id=$1 ORDER BY name`, templateID)
}

// ====================== Lifecycle ======================

func (r *CampaignRepository) Transition(ctx context.Context, id string, from, to model.CampaignStatus, at time.Time) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`
	args := []interface{}{to, at, id, from}
	if to == model.CampaignSent {
		query = `UPDATE campaigns SET status=$1, updated_at=$2, sent_at=$2 WHERE id=$3 AND status=$4`
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, appErrors.FromStore(err, "campaign")
	}
	return affected(res)
}

func (r *CampaignRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.Campaign, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, appErrors.FromStore(err, "campaign")
	}
	defer rows.Close()

	campaigns := []model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, appErrors.FromStore(err, "campaign")
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, appErrors.FromStore(rows.Err(), "campaign")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(s scanner) (*model.Campaign, error) {
	var c model.Campaign
	err := s.Scan(&c.ID, &c.Name, &c.TemplateID, &c.Segment, &c.Status, &c.ScheduledAt, &c.SentAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ids are uuids; anything else can never match a row and would make
// postgres reject the query outright.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
