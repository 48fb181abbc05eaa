package domain

import "time"

// DefaultMaxUsers applies when an organization has no active subscription.
const DefaultMaxUsers = 5

// SubscriptionStatus is the organization-level billing state.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

var SubscriptionStatuses = []SubscriptionStatus{SubscriptionTrial, SubscriptionActive, SubscriptionCancelled, SubscriptionExpired}

// ParseSubscriptionStatus validates an external subscription status.
func ParseSubscriptionStatus(raw string) (SubscriptionStatus, error) {
	return parseEnum("subscription_status", raw, SubscriptionStatuses)
}

// Organization is a tenant. It is never hard-deleted.
type Organization struct {
	ID                 string
	Name               string
	MaxUsers           int
	SubscriptionStatus SubscriptionStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
