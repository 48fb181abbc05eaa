// Package authz decides whether an actor may perform an operation on a tenant
// entity. It never performs side effects; callers act on the returned Grant.
package authz

import (
	"slices"

	"github.com/deskforge/helpdesk/internal/domain"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// Operation is the kind of access being requested.
type Operation string

const (
	OpRead       Operation = "read"
	OpList       Operation = "list"
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpRespond    Operation = "respond"
	OpDelete     Operation = "delete"
	OpDeactivate Operation = "deactivate"
)

// EntityKind is the kind of entity an operation targets.
type EntityKind string

const (
	KindUser     EntityKind = "user"
	KindTicket   EntityKind = "ticket"
	KindResponse EntityKind = "response"
)

// Target carries the fields of the stored entity that decisions depend on.
// Response targets carry their parent ticket's organization and creator.
type Target struct {
	Kind           EntityKind
	OrganizationID string
	CreatedBy      string
	AssignedTo     *string
	ParentUserID   *string
}

// TicketTarget describes an existing ticket.
func TicketTarget(t *domain.Ticket) Target {
	return Target{Kind: KindTicket, OrganizationID: t.OrganizationID, CreatedBy: t.CreatedBy, AssignedTo: t.AssignedTo}
}

// ResponseTarget describes responses of the given parent ticket.
func ResponseTarget(parent *domain.Ticket) Target {
	return Target{Kind: KindResponse, OrganizationID: parent.OrganizationID, CreatedBy: parent.CreatedBy, AssignedTo: parent.AssignedTo}
}

// UserTarget describes an existing account.
func UserTarget(u *domain.User) Target {
	return Target{Kind: KindUser, OrganizationID: u.OrganizationID, ParentUserID: u.ParentUserID}
}

// TenantTarget describes a collection or a not-yet-created entity in the
// actor's own organization.
func TenantTarget(kind EntityKind, actor domain.Actor) Target {
	return Target{Kind: kind, OrganizationID: actor.OrganizationID, CreatedBy: actor.UserID}
}

// Scope narrows list results.
type Scope int

const (
	// ScopeTenant covers every entity in the actor's organization.
	ScopeTenant Scope = iota
	// ScopeOwn covers only tickets the actor created.
	ScopeOwn
)

// Field is a writable ticket attribute.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldPriority    Field = "priority"
	FieldStatus      Field = "status"
	FieldAssignedTo  Field = "assigned_to"
)

var (
	allTicketFields      = []Field{FieldTitle, FieldDescription, FieldCategory, FieldPriority, FieldStatus, FieldAssignedTo}
	customerUpdateFields = []Field{FieldTitle, FieldDescription, FieldCategory}
	customerCreateFields = []Field{FieldTitle, FieldDescription, FieldCategory, FieldPriority}
)

// Grant describes what an allowed operation may touch.
type Grant struct {
	Scope Scope
	// Fields lists the ticket fields the actor may set. Other requested
	// fields are dropped without error.
	Fields []Field
	// InternalNotes is true when the actor may write and read internal notes.
	InternalNotes bool
}

// CanWrite reports whether f is writable under the grant.
func (g Grant) CanWrite(f Field) bool {
	return slices.Contains(g.Fields, f)
}

// Authorize applies the access rules in precedence order; the first matching
// rule decides. A nil error means the operation is allowed.
func Authorize(actor domain.Actor, op Operation, target Target) (Grant, error) {
	if !actor.InTenant() || target.OrganizationID != actor.OrganizationID {
		return Grant{}, apperrors.NewCrossTenantAccess(string(target.Kind))
	}
	if !actor.Role.Valid() {
		return Grant{}, apperrors.NewInsufficientRole("unknown role")
	}

	switch target.Kind {
	case KindUser:
		return authorizeUser(actor, op, target)
	case KindTicket:
		return authorizeTicket(actor, op, target)
	case KindResponse:
		return authorizeResponse(actor, op, target)
	default:
		return Grant{}, apperrors.NewInsufficientRole("unsupported entity")
	}
}

func authorizeUser(actor domain.Actor, op Operation, target Target) (Grant, error) {
	if actor.Role != domain.RoleAdmin {
		return Grant{}, apperrors.NewInsufficientRole("admin role required")
	}
	switch op {
	case OpDelete, OpDeactivate:
		if target.ParentUserID == nil {
			return Grant{}, apperrors.NewProtectedAccount("the organization's root admin cannot be deleted or deactivated")
		}
		return Grant{}, nil
	case OpRead, OpList, OpCreate, OpUpdate:
		return Grant{}, nil
	default:
		return Grant{}, apperrors.NewInsufficientRole("operation not supported on users")
	}
}

func authorizeTicket(actor domain.Actor, op Operation, target Target) (Grant, error) {
	staff := actor.IsStaff()
	switch op {
	case OpCreate:
		if staff {
			return Grant{Fields: allTicketFields}, nil
		}
		return Grant{Fields: customerCreateFields}, nil
	case OpList:
		if staff {
			return Grant{Scope: ScopeTenant}, nil
		}
		return Grant{Scope: ScopeOwn}, nil
	case OpRead:
		return readTicket(actor, target)
	case OpUpdate:
		if staff {
			return Grant{Fields: allTicketFields}, nil
		}
		if target.CreatedBy != actor.UserID {
			return Grant{}, apperrors.NewNotOwner("ticket")
		}
		return Grant{Fields: customerUpdateFields}, nil
	case OpDelete:
		if actor.Role != domain.RoleAdmin {
			return Grant{}, apperrors.NewInsufficientRole("only admins can delete tickets")
		}
		return Grant{}, nil
	case OpRespond:
		return respondTo(actor, target)
	default:
		return Grant{}, apperrors.NewInsufficientRole("operation not supported on tickets")
	}
}

func authorizeResponse(actor domain.Actor, op Operation, target Target) (Grant, error) {
	switch op {
	case OpCreate, OpRespond:
		return respondTo(actor, target)
	case OpRead, OpList:
		grant, err := readTicket(actor, target)
		if err != nil {
			return Grant{}, err
		}
		grant.InternalNotes = actor.IsStaff()
		return grant, nil
	default:
		return Grant{}, apperrors.NewInsufficientRole("responses cannot be modified")
	}
}

func readTicket(actor domain.Actor, target Target) (Grant, error) {
	if actor.IsStaff() {
		return Grant{Scope: ScopeTenant}, nil
	}
	if target.CreatedBy != actor.UserID {
		return Grant{}, apperrors.NewInsufficientRole("customers can only access their own tickets")
	}
	return Grant{Scope: ScopeOwn}, nil
}

func respondTo(actor domain.Actor, target Target) (Grant, error) {
	grant, err := readTicket(actor, target)
	if err != nil {
		return Grant{}, err
	}
	grant.InternalNotes = actor.IsStaff()
	return grant, nil
}
