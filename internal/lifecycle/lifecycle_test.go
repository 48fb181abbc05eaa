package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/helpdesk/internal/authz"
	"github.com/deskforge/helpdesk/internal/domain"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

var (
	now      = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	agent    = domain.Actor{UserID: "agent-1", Role: domain.RoleAgent, OrganizationID: "org-a"}
	customer = domain.Actor{UserID: "cust-1", Role: domain.RoleCustomer, OrganizationID: "org-a"}
	staff    = authz.Grant{Fields: []authz.Field{
		authz.FieldTitle, authz.FieldDescription, authz.FieldCategory,
		authz.FieldPriority, authz.FieldStatus, authz.FieldAssignedTo,
	}}
	customerUpdate = authz.Grant{Fields: []authz.Field{authz.FieldTitle, authz.FieldDescription, authz.FieldCategory}}
)

func ptr[T any](v T) *T { return &v }

func openTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:             "t-1",
		OrganizationID: "org-a",
		Title:          "Printer jam",
		Priority:       domain.TicketPriorityMedium,
		Status:         domain.TicketStatusOpen,
		CreatedBy:      customer.UserID,
	}
}

func assertResolvedInvariant(t *testing.T, ticket *domain.Ticket) {
	t.Helper()
	assert.Equal(t, ticket.Status == domain.TicketStatusResolved, ticket.ResolvedAt != nil,
		"status %s resolvedAt %v", ticket.Status, ticket.ResolvedAt)
}

func TestTransitionTable(t *testing.T) {
	for _, from := range domain.TicketStatuses {
		for _, to := range domain.TicketStatuses {
			assert.True(t, CanTransition(domain.RoleAdmin, from, to))
			assert.True(t, CanTransition(domain.RoleAgent, from, to))
			assert.False(t, CanTransition(domain.RoleCustomer, from, to))
			assert.False(t, CanTransition(domain.RoleSuperAdmin, from, to))
		}
	}
	assert.Len(t, AllowedTargets(domain.RoleAgent, domain.TicketStatusPending), len(domain.TicketStatuses))
	assert.Empty(t, AllowedTargets(domain.RoleCustomer, domain.TicketStatusOpen))
}

func TestNewTicketForcesOwnership(t *testing.T) {
	grant := authz.Grant{Fields: []authz.Field{authz.FieldTitle, authz.FieldDescription, authz.FieldCategory, authz.FieldPriority}}
	ticket, err := NewTicket(customer, grant, CreateInput{
		Title:      "  VPN down ",
		Priority:   ptr(domain.TicketPriorityHigh),
		AssignedTo: ptr("agent-1"),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "VPN down", ticket.Title)
	assert.Equal(t, customer.UserID, ticket.CreatedBy)
	assert.Equal(t, customer.OrganizationID, ticket.OrganizationID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Nil(t, ticket.AssignedTo, "assignee outside grant is dropped")
	assert.Nil(t, ticket.ResolvedAt)
}

func TestNewTicketDefaultsAndValidation(t *testing.T) {
	ticket, err := NewTicket(agent, staff, CreateInput{Title: "x", AssignedTo: ptr("agent-1")}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "agent-1", *ticket.AssignedTo)

	_, err = NewTicket(agent, staff, CreateInput{Title: "   "}, now)
	assert.True(t, apperrors.IsKind(err, apperrors.CodeValidationFailed))

	_, err = NewTicket(agent, staff, CreateInput{Title: "x", Priority: ptr(domain.TicketPriority("critical"))}, now)
	assert.True(t, apperrors.IsKind(err, apperrors.CodeInvalidEnumValue))
}

func TestSetStatusMaintainsResolvedAt(t *testing.T) {
	ticket := openTicket()
	sequence := []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusResolved,
		domain.TicketStatusArchived,
		domain.TicketStatusResolved,
		domain.TicketStatusOnHold,
		domain.TicketStatusPending,
		domain.TicketStatusResolved,
		domain.TicketStatusOpen,
	}
	for i, to := range sequence {
		SetStatus(ticket, to, now.Add(time.Duration(i)*time.Minute))
		assertResolvedInvariant(t, ticket)
	}
}

func TestSetStatusKeepsResolvedTimestampWhenUnchanged(t *testing.T) {
	ticket := openTicket()
	require.True(t, SetStatus(ticket, domain.TicketStatusResolved, now))
	assert.False(t, SetStatus(ticket, domain.TicketStatusResolved, now.Add(time.Hour)))
	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, now, *ticket.ResolvedAt)
}

func TestReopen(t *testing.T) {
	for _, status := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusArchived} {
		ticket := openTicket()
		SetStatus(ticket, status, now)

		change, ok := Reopen(ticket, now.Add(time.Hour))
		require.True(t, ok)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Nil(t, ticket.ResolvedAt)
		assert.Equal(t, domain.ChangeTypeReopen, change.Type)
		assert.Equal(t, status, change.Old["status"])

		_, again := Reopen(ticket, now.Add(2*time.Hour))
		assert.False(t, again, "second reopen is a no-op")
	}

	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusOnHold, domain.TicketStatusPending} {
		ticket := openTicket()
		ticket.Status = status
		_, ok := Reopen(ticket, now)
		assert.False(t, ok)
		assert.Equal(t, status, ticket.Status)
	}
}

func TestApplyCustomerPrivilegedFieldsIgnored(t *testing.T) {
	ticket := openTicket()
	changes, err := Apply(customer, customerUpdate, ticket, Patch{
		Title:      ptr("Printer still jammed"),
		Status:     ptr(domain.TicketStatusArchived),
		Priority:   ptr(domain.TicketPriorityUrgent),
		AssignedTo: ptr("agent-1"),
	}, now)
	require.NoError(t, err)

	assert.Empty(t, changes)
	assert.Equal(t, "Printer still jammed", ticket.Title)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Nil(t, ticket.AssignedTo)
}

func TestApplyCustomerInvalidStatusStillIgnored(t *testing.T) {
	ticket := openTicket()
	_, err := Apply(customer, customerUpdate, ticket, Patch{Status: ptr(domain.TicketStatus("bogus"))}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestApplyStaffChanges(t *testing.T) {
	ticket := openTicket()
	changes, err := Apply(agent, staff, ticket, Patch{
		Status:     ptr(domain.TicketStatusResolved),
		Priority:   ptr(domain.TicketPriorityHigh),
		AssignedTo: ptr("agent-1"),
	}, now)
	require.NoError(t, err)

	require.Len(t, changes, 3)
	assert.Equal(t, domain.ChangeTypePriority, changes[0].Type)
	assert.Equal(t, domain.ChangeTypeStatus, changes[1].Type)
	assert.Equal(t, domain.ChangeTypeAssignee, changes[2].Type)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	assertResolvedInvariant(t, ticket)
	assert.Equal(t, now, ticket.UpdatedAt)

	changes, err = Apply(agent, staff, ticket, Patch{Unassign: true, Status: ptr(domain.TicketStatusPending)}, now)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Nil(t, ticket.AssignedTo)
	assertResolvedInvariant(t, ticket)
}

func TestApplyNoopProducesNoHistory(t *testing.T) {
	ticket := openTicket()
	changes, err := Apply(agent, staff, ticket, Patch{
		Status:   ptr(domain.TicketStatusOpen),
		Priority: ptr(domain.TicketPriorityMedium),
	}, now)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestApplyRejectsInvalidValues(t *testing.T) {
	_, err := Apply(agent, staff, openTicket(), Patch{Status: ptr(domain.TicketStatus("closed"))}, now)
	assert.True(t, apperrors.IsKind(err, apperrors.CodeInvalidStatus))

	_, err = Apply(agent, staff, openTicket(), Patch{Priority: ptr(domain.TicketPriority("p0"))}, now)
	assert.True(t, apperrors.IsKind(err, apperrors.CodeInvalidEnumValue))

	_, err = Apply(agent, staff, openTicket(), Patch{Title: ptr("  ")}, now)
	assert.True(t, apperrors.IsKind(err, apperrors.CodeValidationFailed))
}

func TestValidateAssignee(t *testing.T) {
	ticket := openTicket()
	cases := []struct {
		name string
		user *domain.User
		ok   bool
	}{
		{"agent", &domain.User{OrganizationID: "org-a", Role: domain.RoleAgent, Status: domain.UserStatusActive}, true},
		{"admin", &domain.User{OrganizationID: "org-a", Role: domain.RoleAdmin, Status: domain.UserStatusActive}, true},
		{"customer", &domain.User{OrganizationID: "org-a", Role: domain.RoleCustomer, Status: domain.UserStatusActive}, false},
		{"other org", &domain.User{OrganizationID: "org-b", Role: domain.RoleAgent, Status: domain.UserStatusActive}, false},
		{"inactive", &domain.User{OrganizationID: "org-a", Role: domain.RoleAgent, Status: domain.UserStatusInactive}, false},
		{"missing", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAssignee(ticket, tc.user)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsKind(err, apperrors.CodeInvalidAssignee))
		})
	}
}

func TestWantsAssignee(t *testing.T) {
	assert.True(t, WantsAssignee(staff, Patch{AssignedTo: ptr("a")}))
	assert.False(t, WantsAssignee(staff, Patch{AssignedTo: ptr("a"), Unassign: true}))
	assert.False(t, WantsAssignee(customerUpdate, Patch{AssignedTo: ptr("a")}))
}
