package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
)

// PlanRepository persists pricing plans.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.PricingPlan) error
	Update(ctx context.Context, plan *domain.PricingPlan) error
	GetByID(ctx context.Context, id string) (*domain.PricingPlan, error)
	List(ctx context.Context, activeOnly bool) ([]domain.PricingPlan, error)
}

type planRepository struct {
	db DBTX
}

// NewPlanRepository builds repository.
func NewPlanRepository(db DBTX) PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `id, name, max_users, price, billing_cycle, is_active, created_at, updated_at`

func (r *planRepository) Create(ctx context.Context, plan *domain.PricingPlan) error {
	const query = `
        INSERT INTO pricing_plans (name, max_users, price, billing_cycle, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		plan.Name,
		plan.MaxUsers,
		plan.Price,
		plan.BillingCycle,
		plan.IsActive,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	return translate(err)
}

func (r *planRepository) Update(ctx context.Context, plan *domain.PricingPlan) error {
	const query = `
        UPDATE pricing_plans SET name=$1, max_users=$2, price=$3, billing_cycle=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		plan.Name,
		plan.MaxUsers,
		plan.Price,
		plan.BillingCycle,
		plan.IsActive,
		plan.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*domain.PricingPlan, error) {
	var plan domain.PricingPlan
	if err := scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM pricing_plans WHERE id=$1`, id), &plan); err != nil {
		return nil, translate(err)
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]domain.PricingPlan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans WHERE ($1 = FALSE OR is_active) ORDER BY price ASC, name ASC`
	rows, err := r.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.PricingPlan
	for rows.Next() {
		var plan domain.PricingPlan
		if err := scanPlan(rows, &plan); err != nil {
			return nil, translate(err)
		}
		result = append(result, plan)
	}
	return result, translate(rows.Err())
}

func scanPlan(row pgx.Row, plan *domain.PricingPlan) error {
	return row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.MaxUsers,
		&plan.Price,
		&plan.BillingCycle,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
}
