package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

type TemplateRepositoryInterface interface {
	Create(ctx context.Context, t *model.Template) error
	Update(ctx context.Context, t *model.Template) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Template, error)
	List(ctx context.Context) ([]model.Template, error)
	ListBySegment(ctx context.Context, segment model.Segment) ([]model.Template, error)
}

type TemplateRepository struct {
	DB *sql.DB
}

const templateColumns = `id, name, subject, content, segment, created_at, updated_at`

func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
        INSERT INTO templates (id, name, subject, content, segment, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.ExecContext(ctx, query, t.ID, t.Name, t.Subject, t.Content, t.Segment, t.CreatedAt, t.UpdatedAt)
	return appErrors.FromStore(err, "template")
}

func (r *TemplateRepository) Update(ctx context.Context, t *model.Template) error {
	if !validID(t.ID) {
		return appErrors.NewNotFound("template", t.ID)
	}
	query := `
        UPDATE templates
        SET name=$1, subject=$2, content=$3, segment=$4, updated_at=$5
        WHERE id=$6
    `
	res, err := r.DB.ExecContext(ctx, query, t.Name, t.Subject, t.Content, t.Segment, t.UpdatedAt, t.ID)
	if err != nil {
		return appErrors.FromStore(err, "template")
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewNotFound("template", t.ID)
	}
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.NewNotFound("template", id)
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM templates WHERE id=$1`, id)
	if err != nil {
		return appErrors.FromStore(err, "template")
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewNotFound("template", id)
	}
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.Template, error) {
	if !validID(id) {
		return nil, appErrors.NewNotFound("template", id)
	}
	var t model.Template
	err := r.DB.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.Subject, &t.Content, &t.Segment, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("template", id)
		}
		return nil, appErrors.FromStore(err, "template")
	}
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.Template, error) {
	return r.query(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY created_at DESC`)
}

func (r *TemplateRepository) ListBySegment(ctx context.Context, segment model.Segment) ([]model.Template, error) {
	return r.query(ctx, `SELECT `+templateColumns+` FROM templates WHERE segment=$1 ORDER BY created_at DESC`, segment)
}

func (r *TemplateRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.Template, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, appErrors.FromStore(err, "template")
	}
	defer rows.Close()

	templates := []model.Template{}
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.Content, &t.Segment, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, appErrors.FromStore(err, "template")
		}
		templates = append(templates, t)
	}
	return templates, appErrors.FromStore(rows.Err(), "template")
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
