package repository

import (
	"context"

	"github.com/deskforge/helpdesk/internal/domain"
)

// ResponseRepository manages ticket responses. Responses are append-only.
type ResponseRepository interface {
	Create(ctx context.Context, resp *domain.Response) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error)
}

type responseRepository struct {
	db DBTX
}

// NewResponseRepository builds repository.
func NewResponseRepository(db DBTX) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Create(ctx context.Context, resp *domain.Response) error {
	const query = `
        INSERT INTO responses (ticket_id, user_id, content, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		resp.TicketID,
		resp.UserID,
		resp.Content,
		resp.IsInternal,
	).Scan(&resp.ID, &resp.CreatedAt)
	return translate(err)
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error) {
	const query = `
        SELECT id, ticket_id, user_id, content, is_internal, created_at
        FROM responses WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Response
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(
			&resp.ID,
			&resp.TicketID,
			&resp.UserID,
			&resp.Content,
			&resp.IsInternal,
			&resp.CreatedAt,
		); err != nil {
			return nil, translate(err)
		}
		result = append(result, resp)
	}
	return result, translate(rows.Err())
}
