package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
)

// SubscriptionRepository persists organization subscriptions. At most one
// subscription per organization is active at a time.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	UpdateStatus(ctx context.Context, id string, status domain.PlanSubscriptionStatus) error
	GetActiveByOrganization(ctx context.Context, orgID string) (*domain.Subscription, error)
	ListExpired(ctx context.Context, now time.Time) ([]domain.Subscription, error)
	ListActiveByPlan(ctx context.Context, planID string) ([]domain.Subscription, error)
}

type subscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository builds repository.
func NewSubscriptionRepository(db DBTX) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `id, organization_id, plan_id, status, start_date, end_date, created_at, updated_at`

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	const query = `
        INSERT INTO subscriptions (organization_id, plan_id, status, start_date, end_date)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		sub.OrganizationID,
		sub.PlanID,
		sub.Status,
		sub.StartDate,
		sub.EndDate,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	return translate(err)
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id string, status domain.PlanSubscriptionStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE subscriptions SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subscriptionRepository) GetActiveByOrganization(ctx context.Context, orgID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
        WHERE organization_id=$1 AND status='active'
        ORDER BY start_date DESC LIMIT 1`
	var sub domain.Subscription
	if err := scanSubscription(r.db.QueryRow(ctx, query, orgID), &sub); err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// ListExpired returns active subscriptions whose end date is at or before now.
func (r *subscriptionRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
        WHERE status='active' AND end_date IS NOT NULL AND end_date <= $1
        ORDER BY end_date ASC`
	return r.list(ctx, query, now)
}

// ListActiveByPlan returns the active subscriptions on planID.
func (r *subscriptionRepository) ListActiveByPlan(ctx context.Context, planID string) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
        WHERE plan_id=$1 AND status='active'
        ORDER BY start_date ASC`
	return r.list(ctx, query, planID)
}

func (r *subscriptionRepository) list(ctx context.Context, query string, arg any) ([]domain.Subscription, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, translate(err)
		}
		result = append(result, sub)
	}
	return result, translate(rows.Err())
}

func scanSubscription(row pgx.Row, sub *domain.Subscription) error {
	return row.Scan(
		&sub.ID,
		&sub.OrganizationID,
		&sub.PlanID,
		&sub.Status,
		&sub.StartDate,
		&sub.EndDate,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
}
