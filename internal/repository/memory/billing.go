package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
)

type planRepo struct{ v *view }

func (r *planRepo) Create(ctx context.Context, plan *domain.PricingPlan) error {
	return r.v.do(ctx, func(st *state) error {
		for _, existing := range st.plans {
			if strings.EqualFold(existing.val.Name, plan.Name) {
				return repository.ErrDuplicate
			}
		}
		now := r.v.now()
		plan.ID = newID()
		plan.CreatedAt, plan.UpdatedAt = now, now
		st.plans[plan.ID] = row[domain.PricingPlan]{seq: st.next(), val: *plan}
		return nil
	})
}

func (r *planRepo) Update(ctx context.Context, plan *domain.PricingPlan) error {
	return r.v.do(ctx, func(st *state) error {
		existing, ok := st.plans[plan.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		for id, other := range st.plans {
			if id != plan.ID && strings.EqualFold(other.val.Name, plan.Name) {
				return repository.ErrDuplicate
			}
		}
		plan.CreatedAt = existing.val.CreatedAt
		plan.UpdatedAt = r.v.now()
		existing.val = *plan
		st.plans[plan.ID] = existing
		return nil
	})
}

func (r *planRepo) GetByID(ctx context.Context, id string) (*domain.PricingPlan, error) {
	var out *domain.PricingPlan
	err := r.v.do(ctx, func(st *state) error {
		existing, ok := st.plans[id]
		if !ok {
			return pgx.ErrNoRows
		}
		plan := existing.val
		out = &plan
		return nil
	})
	return out, err
}

func (r *planRepo) List(ctx context.Context, activeOnly bool) ([]domain.PricingPlan, error) {
	var out []domain.PricingPlan
	err := r.v.do(ctx, func(st *state) error {
		for _, plan := range st.plans.ordered() {
			if activeOnly && !plan.IsActive {
				continue
			}
			out = append(out, plan)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Price != out[j].Price {
				return out[i].Price < out[j].Price
			}
			return out[i].Name < out[j].Name
		})
		return nil
	})
	return out, err
}

type subscriptionRepo struct{ v *view }

func cloneSubscription(s domain.Subscription) domain.Subscription {
	s.EndDate = copyTime(s.EndDate)
	return s
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.organizations[sub.OrganizationID]; !ok {
			return repository.ErrReferenced
		}
		if _, ok := st.plans[sub.PlanID]; !ok {
			return repository.ErrReferenced
		}
		if sub.Status == domain.PlanSubscriptionActive {
			for _, existing := range st.subscriptions {
				if existing.val.OrganizationID == sub.OrganizationID && existing.val.Status == domain.PlanSubscriptionActive {
					return repository.ErrDuplicate
				}
			}
		}
		now := r.v.now()
		sub.ID = newID()
		sub.CreatedAt, sub.UpdatedAt = now, now
		st.subscriptions[sub.ID] = row[domain.Subscription]{seq: st.next(), val: cloneSubscription(*sub)}
		return nil
	})
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, id string, status domain.PlanSubscriptionStatus) error {
	return r.v.do(ctx, func(st *state) error {
		existing, ok := st.subscriptions[id]
		if !ok {
			return pgx.ErrNoRows
		}
		existing.val.Status = status
		existing.val.UpdatedAt = r.v.now()
		st.subscriptions[id] = existing
		return nil
	})
}

func (r *subscriptionRepo) GetActiveByOrganization(ctx context.Context, orgID string) (*domain.Subscription, error) {
	var out *domain.Subscription
	err := r.v.do(ctx, func(st *state) error {
		for _, existing := range st.subscriptions {
			if existing.val.OrganizationID != orgID || existing.val.Status != domain.PlanSubscriptionActive {
				continue
			}
			if out == nil || existing.val.StartDate.After(out.StartDate) {
				sub := cloneSubscription(existing.val)
				out = &sub
			}
		}
		if out == nil {
			return pgx.ErrNoRows
		}
		return nil
	})
	return out, err
}

func (r *subscriptionRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	var out []domain.Subscription
	err := r.v.do(ctx, func(st *state) error {
		for _, sub := range st.subscriptions.ordered() {
			if sub.Status == domain.PlanSubscriptionActive && sub.EndDate != nil && !sub.EndDate.After(now) {
				out = append(out, cloneSubscription(sub))
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].EndDate.Before(*out[j].EndDate) })
		return nil
	})
	return out, err
}

func (r *subscriptionRepo) ListActiveByPlan(ctx context.Context, planID string) ([]domain.Subscription, error) {
	var out []domain.Subscription
	err := r.v.do(ctx, func(st *state) error {
		for _, sub := range st.subscriptions.ordered() {
			if sub.PlanID == planID && sub.Status == domain.PlanSubscriptionActive {
				out = append(out, cloneSubscription(sub))
			}
		}
		return nil
	})
	return out, err
}
