package domain

import "time"

// Role enumerates the flat, closed set of account roles.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleAgent      Role = "agent"
	RoleCustomer   Role = "customer"
)

// Roles lists every role in display order.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleAgent, RoleCustomer}

// TenantRoles are the roles an organization admin may grant.
var TenantRoles = []Role{RoleAdmin, RoleAgent, RoleCustomer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return contains(Roles, r) }

// ParseRole validates an external role value.
func ParseRole(raw string) (Role, error) { return parseEnum("role", raw, Roles) }

// ParseTenantRole validates a role that may be assigned inside an organization.
func ParseTenantRole(raw string) (Role, error) { return parseEnum("role", raw, TenantRoles) }

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

var UserStatuses = []UserStatus{UserStatusActive, UserStatusInactive}

// ParseUserStatus validates an external status value.
func ParseUserStatus(raw string) (UserStatus, error) { return parseEnum("status", raw, UserStatuses) }

// User is an account of any role. OrganizationID is empty only for superadmins.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	OrganizationID string
	ParentUserID   *string
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsRootAdmin reports whether u is the admin created at organization signup.
func (u *User) IsRootAdmin() bool {
	return u.Role == RoleAdmin && u.ParentUserID == nil
}
