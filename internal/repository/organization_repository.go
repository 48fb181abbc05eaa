package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
)

// OrganizationRepository persists tenants.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	Update(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	List(ctx context.Context, limit, offset int) ([]domain.Organization, error)
}

type organizationRepository struct {
	db DBTX
}

// NewOrganizationRepository returns a Postgres-backed implementation.
func NewOrganizationRepository(db DBTX) OrganizationRepository {
	return &organizationRepository{db: db}
}

const organizationColumns = `id, name, max_users, subscription_status, created_at, updated_at`

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	const query = `
        INSERT INTO organizations (name, max_users, subscription_status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		org.Name,
		org.MaxUsers,
		org.SubscriptionStatus,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	return translate(err)
}

func (r *organizationRepository) Update(ctx context.Context, org *domain.Organization) error {
	const query = `
        UPDATE organizations SET name=$1, max_users=$2, subscription_status=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query,
		org.Name,
		org.MaxUsers,
		org.SubscriptionStatus,
		org.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id=$1`
	var org domain.Organization
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.MaxUsers,
		&org.SubscriptionStatus,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

func (r *organizationRepository) List(ctx context.Context, limit, offset int) ([]domain.Organization, error) {
	limit, offset = normalizeLimit(limit, offset)
	query := `SELECT ` + organizationColumns + ` FROM organizations ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.MaxUsers,
			&org.SubscriptionStatus,
			&org.CreatedAt,
			&org.UpdatedAt,
		); err != nil {
			return nil, translate(err)
		}
		result = append(result, org)
	}
	return result, translate(rows.Err())
}
