// Package lifecycle holds the ticket state rules: status changes, the
// resolvedAt invariant, reopen-on-response and field updates. Functions here
// mutate the ticket value they are given and never touch storage.
package lifecycle

import (
	"strings"
	"time"

	"github.com/deskforge/helpdesk/internal/authz"
	"github.com/deskforge/helpdesk/internal/domain"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// Change records one audited field change.
type Change struct {
	Type domain.TicketChangeType
	Old  map[string]any
	New  map[string]any
}

// CreateInput holds requested fields for a new ticket.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    *domain.TicketPriority
	AssignedTo  *string
}

// Patch holds requested field changes; nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	// AssignedTo sets the assignee; Unassign clears it.
	AssignedTo *string
	Unassign   bool
}

// NewTicket builds a ticket owned by actor. Fields outside the grant are dropped.
func NewTicket(actor domain.Actor, grant authz.Grant, in CreateInput, now time.Time) (*domain.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	ticket := &domain.Ticket{
		OrganizationID: actor.OrganizationID,
		CreatedBy:      actor.UserID,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Category:       strings.TrimSpace(in.Category),
		Priority:       domain.TicketPriorityMedium,
		Status:         domain.TicketStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Priority != nil && grant.CanWrite(authz.FieldPriority) {
		if !in.Priority.Valid() {
			return nil, apperrors.NewInvalidEnumValue("priority", string(*in.Priority), priorityNames())
		}
		ticket.Priority = *in.Priority
	}
	if in.AssignedTo != nil && grant.CanWrite(authz.FieldAssignedTo) {
		assignee := *in.AssignedTo
		ticket.AssignedTo = &assignee
	}
	return ticket, nil
}

// SetStatus moves the ticket to status to, keeping ResolvedAt set exactly
// while the ticket is resolved. It reports whether the status changed.
func SetStatus(t *domain.Ticket, to domain.TicketStatus, now time.Time) bool {
	if t.Status == to {
		return false
	}
	t.Status = to
	if to == domain.TicketStatusResolved {
		resolved := now
		t.ResolvedAt = &resolved
	} else {
		t.ResolvedAt = nil
	}
	return true
}

// Reopen moves a resolved or archived ticket back to open. It is the side
// effect of a new response and reports whether the ticket changed.
func Reopen(t *domain.Ticket, now time.Time) (Change, bool) {
	if !t.Status.Closed() {
		return Change{}, false
	}
	old := t.Status
	SetStatus(t, domain.TicketStatusOpen, now)
	return Change{
		Type: domain.ChangeTypeReopen,
		Old:  map[string]any{"status": old},
		New:  map[string]any{"status": t.Status},
	}, true
}

// ValidateAssignee checks that assignee may own tickets of t's organization.
func ValidateAssignee(t *domain.Ticket, assignee *domain.User) error {
	if assignee == nil || assignee.OrganizationID != t.OrganizationID {
		return apperrors.NewInvalidAssignee("assignee must belong to the ticket's organization", nil)
	}
	if assignee.Role != domain.RoleAdmin && assignee.Role != domain.RoleAgent {
		return apperrors.NewInvalidAssignee("tickets can only be assigned to admins or agents",
			map[string]any{"role": assignee.Role})
	}
	if !assignee.IsActive() {
		return apperrors.NewInvalidAssignee("assignee is inactive", nil)
	}
	return nil
}

// Apply writes the permitted subset of p onto t. Requested fields the grant
// does not cover are ignored rather than rejected. The assignee, if any, must
// already have been checked with ValidateAssignee.
func Apply(actor domain.Actor, grant authz.Grant, t *domain.Ticket, p Patch, now time.Time) ([]Change, error) {
	var changes []Change

	if p.Title != nil && grant.CanWrite(authz.FieldTitle) {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		t.Title = title
	}
	if p.Description != nil && grant.CanWrite(authz.FieldDescription) {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil && grant.CanWrite(authz.FieldCategory) {
		t.Category = strings.TrimSpace(*p.Category)
	}

	if p.Priority != nil && grant.CanWrite(authz.FieldPriority) {
		if !p.Priority.Valid() {
			return nil, apperrors.NewInvalidEnumValue("priority", string(*p.Priority), priorityNames())
		}
		if *p.Priority != t.Priority {
			changes = append(changes, Change{
				Type: domain.ChangeTypePriority,
				Old:  map[string]any{"priority": t.Priority},
				New:  map[string]any{"priority": *p.Priority},
			})
			t.Priority = *p.Priority
		}
	}

	if p.Status != nil && grant.CanWrite(authz.FieldStatus) {
		to := *p.Status
		if !to.Valid() {
			return nil, apperrors.NewInvalidStatus(string(to))
		}
		if to != t.Status && !CanTransition(actor.Role, t.Status, to) {
			return nil, apperrors.NewInvalidStatus(string(to))
		}
		from := t.Status
		if SetStatus(t, to, now) {
			changes = append(changes, Change{
				Type: domain.ChangeTypeStatus,
				Old:  map[string]any{"status": from},
				New:  map[string]any{"status": to},
			})
		}
	}

	if grant.CanWrite(authz.FieldAssignedTo) && (p.AssignedTo != nil || p.Unassign) {
		old := t.AssignedTo
		var next *string
		if p.AssignedTo != nil && !p.Unassign {
			id := *p.AssignedTo
			next = &id
		}
		if !sameAssignee(old, next) {
			changes = append(changes, Change{
				Type: domain.ChangeTypeAssignee,
				Old:  map[string]any{"assigned_to": old},
				New:  map[string]any{"assigned_to": next},
			})
			t.AssignedTo = next
		}
	}

	t.UpdatedAt = now
	return changes, nil
}

// WantsAssignee reports whether p requests an assignee that needs validation
// under grant.
func WantsAssignee(grant authz.Grant, p Patch) bool {
	return grant.CanWrite(authz.FieldAssignedTo) && p.AssignedTo != nil && !p.Unassign
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func priorityNames() []string {
	names := make([]string, 0, len(domain.TicketPriorities))
	for _, p := range domain.TicketPriorities {
		names = append(names, string(p))
	}
	return names
}
