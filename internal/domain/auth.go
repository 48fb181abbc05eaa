package domain

// Actor is the resolved caller of a core operation. It is passed explicitly to
// every authorization and lifecycle call.
type Actor struct {
	UserID         string
	Role           Role
	OrganizationID string
}

// InTenant reports whether the actor is bound to an organization.
func (a Actor) InTenant() bool {
	return a.OrganizationID != ""
}

// IsStaff reports whether the actor works tickets (admin or agent).
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleAgent
}
