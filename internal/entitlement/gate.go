// Package entitlement enforces the per-organization user ceiling derived from
// the organization's active subscription plan.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// Check denies when activeUsers already fills maxUsers.
func Check(activeUsers, maxUsers int) error {
	if activeUsers >= maxUsers {
		return apperrors.NewQuotaExceeded(maxUsers, activeUsers)
	}
	return nil
}

// Gate resolves an organization's ceiling and checks it before user creation.
type Gate struct {
	cache      LimitCache
	defaultMax int
	logger     *zap.Logger
	now        func() time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock overrides the time source used to judge subscription end dates.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate builds a gate. A nil cache disables caching.
func NewGate(cache LimitCache, defaultMax int, logger *zap.Logger, opts ...Option) *Gate {
	if cache == nil {
		cache = NopCache{}
	}
	if defaultMax <= 0 {
		defaultMax = domain.DefaultMaxUsers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		cache:      cache,
		defaultMax: defaultMax,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanAddUser returns QuotaExceeded when the organization is at its ceiling.
// Callers run it inside the transaction that inserts the user.
func (g *Gate) CanAddUser(ctx context.Context, repos repository.Repositories, orgID string) error {
	limit, err := g.Limit(ctx, repos, orgID)
	if err != nil {
		return err
	}
	active, err := repos.Users.CountActiveByOrganization(ctx, orgID)
	if err != nil {
		return fmt.Errorf("count active users: %w", err)
	}
	return Check(active, limit)
}

// Limit returns the active plan's MaxUsers, else the organization's own
// MaxUsers, else the configured default. A subscription past its end date
// grants only the default, even before the expiry sweep has run.
func (g *Gate) Limit(ctx context.Context, repos repository.Repositories, orgID string) (int, error) {
	if limit, ok, err := g.cache.Get(ctx, orgID); err != nil {
		g.logger.Warn("entitlement cache read failed", zap.String("org_id", orgID), zap.Error(err))
	} else if ok {
		return limit, nil
	}

	limit, err := g.resolve(ctx, repos, orgID)
	if err != nil {
		return 0, err
	}
	if err := g.cache.Set(ctx, orgID, limit); err != nil {
		g.logger.Warn("entitlement cache write failed", zap.String("org_id", orgID), zap.Error(err))
	}
	return limit, nil
}

func (g *Gate) resolve(ctx context.Context, repos repository.Repositories, orgID string) (int, error) {
	sub, err := repos.Subscriptions.GetActiveByOrganization(ctx, orgID)
	switch {
	case err == nil && !sub.ActiveAt(g.now()):
		return g.defaultMax, nil
	case err == nil:
		plan, err := repos.Plans.GetByID(ctx, sub.PlanID)
		if err != nil {
			return 0, fmt.Errorf("load plan %s: %w", sub.PlanID, err)
		}
		if plan.MaxUsers > 0 {
			return plan.MaxUsers, nil
		}
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("load subscription: %w", err)
	}

	org, err := repos.Organizations.GetByID(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("load organization: %w", err)
	}
	if org.MaxUsers > 0 {
		return org.MaxUsers, nil
	}
	return g.defaultMax, nil
}

// Invalidate drops the cached ceiling after a subscription change.
func (g *Gate) Invalidate(ctx context.Context, orgID string) {
	if err := g.cache.Invalidate(ctx, orgID); err != nil {
		g.logger.Warn("entitlement cache invalidate failed", zap.String("org_id", orgID), zap.Error(err))
	}
}

// DefaultMax is the ceiling applied to organizations without a plan.
func (g *Gate) DefaultMax() int {
	return g.defaultMax
}
