package domain

import "time"

// BillingCycle enumerates plan billing periods.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

var BillingCycles = []BillingCycle{BillingMonthly, BillingYearly}

// ParseBillingCycle validates an external billing cycle.
func ParseBillingCycle(raw string) (BillingCycle, error) {
	return parseEnum("billing_cycle", raw, BillingCycles)
}

// Period returns the end of a cycle that starts at from.
func (c BillingCycle) Period(from time.Time) time.Time {
	if c == BillingYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// PricingPlan defines a metered plan. Price is in minor currency units.
type PricingPlan struct {
	ID           string
	Name         string
	MaxUsers     int
	Price        int64
	BillingCycle BillingCycle
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlanSubscriptionStatus is the state of a single Subscription row.
type PlanSubscriptionStatus string

const (
	PlanSubscriptionActive    PlanSubscriptionStatus = "active"
	PlanSubscriptionCancelled PlanSubscriptionStatus = "cancelled"
	PlanSubscriptionExpired   PlanSubscriptionStatus = "expired"
)

// Subscription binds one organization to one plan.
type Subscription struct {
	ID             string
	OrganizationID string
	PlanID         string
	Status         PlanSubscriptionStatus
	StartDate      time.Time
	EndDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ActiveAt reports whether the subscription grants entitlements at t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	if s.Status != PlanSubscriptionActive {
		return false
	}
	return s.EndDate == nil || t.Before(*s.EndDate)
}
