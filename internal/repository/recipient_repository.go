package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
)

// RecipientRepositoryInterface resolves the audience of a segment.
type RecipientRepositoryInterface interface {
	ListBySegment(ctx context.Context, segment model.Segment) ([]model.Recipient, error)
}

// RecipientRepository reads recipients from the CRM clients table.
type RecipientRepository struct {
	DB *sql.DB
}

func (r *RecipientRepository) ListBySegment(ctx context.Context, segment model.Segment) ([]model.Recipient, error) {
	query := `
        SELECT email, first_name, last_name, segment
        FROM clients
        WHERE segment = $1
        ORDER BY email
    `
	rows, err := r.DB.QueryContext(ctx, query, segment)
	if err != nil {
		return nil, appErrors.FromStore(err, "recipient")
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rc model.Recipient
		if err := rows.Scan(&rc.Email, &rc.FirstName, &rc.LastName, &rc.Segment); err != nil {
			return nil, appErrors.FromStore(err, "recipient")
		}
		recipients = append(recipients, rc)
	}
	return recipients, appErrors.FromStore(rows.Err(), "recipient")
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
