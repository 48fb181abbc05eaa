package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/entitlement"
	"github.com/deskforge/helpdesk/internal/events"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// BillingService manages pricing plans and organization subscriptions.
// Payment capture happens outside this service.
type BillingService struct {
	store     repository.Store
	gate      *entitlement.Gate
	publisher publisher
	logger    *zap.Logger
	now       func() time.Time
}

// BillingDependencies bundles collaborators for the billing service.
type BillingDependencies struct {
	Store      repository.Store
	Gate       *entitlement.Gate
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// PlanInput describes a new pricing plan.
type PlanInput struct {
	Name         string
	MaxUsers     int
	Price        int64
	BillingCycle domain.BillingCycle
	IsActive     bool
}

// PlanPatch describes a partial plan update.
type PlanPatch struct {
	Name         *string
	MaxUsers     *int
	Price        *int64
	BillingCycle *domain.BillingCycle
	IsActive     *bool
}

// NewBillingService constructs the service.
func NewBillingService(deps BillingDependencies) *BillingService {
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	logger := nopIfNil(deps.Logger)
	return &BillingService{
		store:     deps.Store,
		gate:      deps.Gate,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger, now: clock},
		logger:    logger,
		now:       clock,
	}
}

// CreatePlan adds a pricing plan.
func (s *BillingService) CreatePlan(ctx context.Context, actor domain.Actor, input PlanInput) (*domain.PricingPlan, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	plan := &domain.PricingPlan{
		Name:         strings.TrimSpace(input.Name),
		MaxUsers:     input.MaxUsers,
		Price:        input.Price,
		BillingCycle: input.BillingCycle,
		IsActive:     input.IsActive,
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if err := s.store.Repositories().Plans.Create(ctx, plan); err != nil {
		return nil, storeError(err, "plan")
	}
	return plan, nil
}

// UpdatePlan changes a pricing plan. A new MaxUsers applies at once to every
// organization actively subscribed to the plan.
func (s *BillingService) UpdatePlan(ctx context.Context, actor domain.Actor, planID string, patch PlanPatch) (*domain.PricingPlan, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	var (
		plan        *domain.PricingPlan
		subscribers []string
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		subscribers = nil
		current, err := repos.Plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			current.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.MaxUsers != nil {
			current.MaxUsers = *patch.MaxUsers
		}
		if patch.Price != nil {
			current.Price = *patch.Price
		}
		if patch.BillingCycle != nil {
			current.BillingCycle = *patch.BillingCycle
		}
		if patch.IsActive != nil {
			current.IsActive = *patch.IsActive
		}
		if err := validatePlan(current); err != nil {
			return err
		}
		if err := repos.Plans.Update(ctx, current); err != nil {
			return err
		}
		plan = current
		subs, err := repos.Subscriptions.ListActiveByPlan(ctx, current.ID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			org, err := repos.Organizations.GetByID(ctx, sub.OrganizationID)
			if err != nil {
				return err
			}
			subscribers = append(subscribers, org.ID)
			if org.MaxUsers == current.MaxUsers {
				continue
			}
			org.MaxUsers = current.MaxUsers
			if err := repos.Organizations.Update(ctx, org); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "plan")
	}
	for _, orgID := range subscribers {
		s.gate.Invalidate(ctx, orgID)
	}
	if len(subscribers) > 0 {
		s.logger.Info("plan ceiling applied to subscribers",
			zap.String("plan_id", plan.ID),
			zap.Int("max_users", plan.MaxUsers),
			zap.Int("organizations", len(subscribers)))
	}
	return plan, nil
}

// ListPlans returns plans; only superadmins see inactive ones.
func (s *BillingService) ListPlans(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.PricingPlan, error) {
	activeOnly := !includeInactive || actor.Role != domain.RoleSuperAdmin
	plans, err := s.store.Repositories().Plans.List(ctx, activeOnly)
	if err != nil {
		return nil, storeError(err, "plan")
	}
	return plans, nil
}

// Subscribe moves an organization onto an active plan. The previous active
// subscription is cancelled in the same transaction.
func (s *BillingService) Subscribe(ctx context.Context, actor domain.Actor, orgID, planID string) (*domain.Subscription, error) {
	if err := authorizeBilling(actor, orgID); err != nil {
		return nil, err
	}
	now := s.now()
	var (
		sub *domain.Subscription
		org *domain.Organization
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		plan, err := repos.Plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if !plan.IsActive {
			return apperrors.NewValidationError("plan is not available", map[string]any{"plan_id": planID})
		}
		org, err = repos.Organizations.GetByID(ctx, orgID)
		if err != nil {
			return err
		}
		if err := cancelActive(ctx, repos, orgID, domain.PlanSubscriptionCancelled); err != nil {
			return err
		}
		end := plan.BillingCycle.Period(now)
		sub = &domain.Subscription{
			OrganizationID: orgID,
			PlanID:         plan.ID,
			Status:         domain.PlanSubscriptionActive,
			StartDate:      now,
			EndDate:        &end,
		}
		if err := repos.Subscriptions.Create(ctx, sub); err != nil {
			return err
		}
		org.SubscriptionStatus = domain.SubscriptionActive
		org.MaxUsers = plan.MaxUsers
		return repos.Organizations.Update(ctx, org)
	})
	if err != nil {
		return nil, storeError(err, "subscription")
	}
	s.changed(ctx, actor, org, sub.PlanID)
	s.logger.Info("subscription started",
		zap.String("org_id", orgID),
		zap.String("plan_id", planID),
		zap.Time("end_date", *sub.EndDate))
	return sub, nil
}

// Cancel ends the organization's active subscription. The organization falls
// back to the default user ceiling.
func (s *BillingService) Cancel(ctx context.Context, actor domain.Actor, orgID string) (*domain.Organization, error) {
	if err := authorizeBilling(actor, orgID); err != nil {
		return nil, err
	}
	var org *domain.Organization
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		sub, err := repos.Subscriptions.GetActiveByOrganization(ctx, orgID)
		if err != nil {
			return err
		}
		if err := repos.Subscriptions.UpdateStatus(ctx, sub.ID, domain.PlanSubscriptionCancelled); err != nil {
			return err
		}
		org, err = s.downgrade(ctx, repos, orgID, domain.SubscriptionCancelled)
		return err
	})
	if err != nil {
		return nil, storeError(err, "subscription")
	}
	s.changed(ctx, actor, org, "")
	return org, nil
}

// ExpireDue marks active subscriptions past their end date as expired and
// returns how many organizations were downgraded.
func (s *BillingService) ExpireDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.Repositories().Subscriptions.ListExpired(ctx, now)
	if err != nil {
		return 0, storeError(err, "subscription")
	}
	expired := 0
	for _, candidate := range due {
		var org *domain.Organization
		err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
			sub, err := repos.Subscriptions.GetActiveByOrganization(ctx, candidate.OrganizationID)
			if err != nil {
				return err
			}
			if sub.ID != candidate.ID || sub.ActiveAt(now) {
				return nil
			}
			if err := repos.Subscriptions.UpdateStatus(ctx, sub.ID, domain.PlanSubscriptionExpired); err != nil {
				return err
			}
			org, err = s.downgrade(ctx, repos, sub.OrganizationID, domain.SubscriptionExpired)
			return err
		})
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return expired, storeError(err, "subscription")
		}
		if org == nil {
			continue
		}
		expired++
		s.changed(ctx, domain.Actor{}, org, "")
		s.logger.Info("subscription expired",
			zap.String("org_id", org.ID),
			zap.String("subscription_id", candidate.ID))
	}
	return expired, nil
}

func (s *BillingService) downgrade(ctx context.Context, repos repository.Repositories, orgID string, status domain.SubscriptionStatus) (*domain.Organization, error) {
	org, err := repos.Organizations.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org.SubscriptionStatus = status
	org.MaxUsers = s.gate.DefaultMax()
	if err := repos.Organizations.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *BillingService) changed(ctx context.Context, actor domain.Actor, org *domain.Organization, planID string) {
	s.gate.Invalidate(ctx, org.ID)
	s.publisher.publish(ctx, events.Event{
		Type:           events.EventSubscriptionChanged,
		OrganizationID: org.ID,
		Actor:          eventActor(actor),
		Payload: events.SubscriptionChangedPayload{
			PlanID:   planID,
			Status:   org.SubscriptionStatus,
			MaxUsers: org.MaxUsers,
		},
	})
}

func cancelActive(ctx context.Context, repos repository.Repositories, orgID string, status domain.PlanSubscriptionStatus) error {
	current, err := repos.Subscriptions.GetActiveByOrganization(ctx, orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return repos.Subscriptions.UpdateStatus(ctx, current.ID, status)
}

// authorizeBilling lets an admin manage their own organization and a
// superadmin manage any.
func authorizeBilling(actor domain.Actor, orgID string) error {
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return nil
	case domain.RoleAdmin:
		if actor.OrganizationID != orgID {
			return apperrors.NewCrossTenantAccess("organization")
		}
		return nil
	default:
		return apperrors.NewInsufficientRole("admin role required")
	}
}

func validatePlan(plan *domain.PricingPlan) error {
	if plan.Name == "" {
		return apperrors.NewValidationError("plan name required", nil)
	}
	if plan.MaxUsers <= 0 {
		return apperrors.NewValidationError("max_users must be positive", map[string]any{"max_users": plan.MaxUsers})
	}
	if plan.Price < 0 {
		return apperrors.NewValidationError("price cannot be negative", map[string]any{"price": plan.Price})
	}
	if _, err := domain.ParseBillingCycle(string(plan.BillingCycle)); err != nil {
		return err
	}
	return nil
}
