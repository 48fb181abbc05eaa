package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/events"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

func TestInternalNoteHiddenFromCustomer(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, agent := f.addUser(t, admin, domain.RoleAgent, "agent@acme.test")
	_, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")

	ticket := f.openTicket(t, customer, "Printer on fire")
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	note, err := f.tickets.AddResponse(f.ctx, agent, ticket.ID, ResponseInput{Content: "escalating", IsInternal: true})
	require.NoError(t, err)
	assert.True(t, note.IsInternal)

	customerView, err := f.tickets.GetTicket(f.ctx, customer, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, customerView.Responses)

	agentView, err := f.tickets.GetTicket(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	require.Len(t, agentView.Responses, 1)
	assert.Equal(t, note.ID, agentView.Responses[0].ID)

	listed, err := f.tickets.ListResponses(f.ctx, customer, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCustomerCannotWriteInternalNote(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	ticket := f.openTicket(t, customer, "Login broken")

	resp, err := f.tickets.AddResponse(f.ctx, customer, ticket.ID, ResponseInput{Content: "any news?", IsInternal: true})
	require.NoError(t, err)
	assert.False(t, resp.IsInternal)

	payloads := f.recorder.ofType(events.EventResponseAdded)
	require.Len(t, payloads, 1)
	assert.False(t, payloads[0].Payload.(events.ResponseAddedPayload).IsInternal)
}

func TestResponseReopensResolvedTicket(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	ticket := f.openTicket(t, customer, "Refund")

	resolved := f.setStatus(t, admin, ticket.ID, domain.TicketStatusResolved)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, f.clock.Now(), *resolved.ResolvedAt)

	f.clock.Advance(time.Hour)
	_, err := f.tickets.AddResponse(f.ctx, customer, ticket.ID, ResponseInput{Content: "still broken"})
	require.NoError(t, err)

	detail, err := f.tickets.GetTicket(f.ctx, customer, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, detail.Ticket.Status)
	assert.Nil(t, detail.Ticket.ResolvedAt)

	history, err := f.tickets.ListHistory(f.ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChangeTypeStatus, history[0].ChangeType)
	assert.Equal(t, domain.ChangeTypeReopen, history[1].ChangeType)
	assert.Equal(t, customer.UserID, history[1].ChangedBy)

	reopened := f.recorder.ofType(events.EventTicketReopened)
	require.Len(t, reopened, 1)
	payload := reopened[0].Payload.(events.TicketStatusChangedPayload)
	assert.Equal(t, domain.TicketStatusResolved, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusOpen, payload.NewStatus)
}

func TestResponseOnOpenTicketDoesNotReopen(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	ticket := f.openTicket(t, admin, "Internal task")
	before := ticket.Version

	_, err := f.tickets.AddResponse(f.ctx, admin, ticket.ID, ResponseInput{Content: "working on it"})
	require.NoError(t, err)

	detail, err := f.tickets.GetTicket(f.ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, before, detail.Ticket.Version)
	assert.Empty(t, f.recorder.ofType(events.EventTicketReopened))
}

func TestConcurrentResponsesReopenOnce(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, agent := f.addUser(t, admin, domain.RoleAgent, "agent@acme.test")
	_, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	ticket := f.openTicket(t, customer, "Race")
	f.setStatus(t, admin, ticket.ID, domain.TicketStatusResolved)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		actor := customer
		if i%2 == 1 {
			actor = agent
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tickets.AddResponse(f.ctx, actor, ticket.ID, ResponseInput{Content: "ping"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	detail, err := f.tickets.GetTicket(f.ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, detail.Ticket.Status)
	assert.Nil(t, detail.Ticket.ResolvedAt)
	assert.Len(t, detail.Responses, writers)

	history, err := f.tickets.ListHistory(f.ctx, admin, ticket.ID)
	require.NoError(t, err)
	reopens := 0
	for _, entry := range history {
		if entry.ChangeType == domain.ChangeTypeReopen {
			reopens++
		}
	}
	assert.Equal(t, 1, reopens)
	assert.Len(t, f.recorder.ofType(events.EventTicketReopened), 1)
}

func TestConcurrentStatusUpdateAndResponse(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	ticket := f.openTicket(t, customer, "Race")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		status := domain.TicketStatusResolved
		_, err := f.tickets.UpdateTicket(f.ctx, admin, ticket.ID, TicketPatch{Status: &status})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := f.tickets.AddResponse(f.ctx, customer, ticket.ID, ResponseInput{Content: "hello"})
		assert.NoError(t, err)
	}()
	wg.Wait()

	detail, err := f.tickets.GetTicket(f.ctx, admin, ticket.ID)
	require.NoError(t, err)
	// Either order is valid; the timestamp invariant must hold in both.
	assert.Equal(t, detail.Ticket.Status == domain.TicketStatusResolved, detail.Ticket.ResolvedAt != nil)
}

func TestCrossTenantTicketAccess(t *testing.T) {
	f := newFixture(t)
	_, admin1 := f.signup(t, "Acme", "root@acme.test")
	_, customer1 := f.addUser(t, admin1, domain.RoleCustomer, "c1@acme.test")
	ticket := f.openTicket(t, customer1, "Mine")

	_, admin2 := f.signup(t, "Globex", "root@globex.test")
	_, customer2 := f.addUser(t, admin2, domain.RoleCustomer, "c2@globex.test")
	_, agent2 := f.addUser(t, admin2, domain.RoleAgent, "a2@globex.test")

	for _, outsider := range []domain.Actor{customer2, agent2, admin2} {
		_, err := f.tickets.GetTicket(f.ctx, outsider, ticket.ID)
		requireKind(t, err, apperrors.CodeCrossTenantAccess)

		title := "hijacked"
		_, err = f.tickets.UpdateTicket(f.ctx, outsider, ticket.ID, TicketPatch{Title: &title})
		requireKind(t, err, apperrors.CodeCrossTenantAccess)

		_, err = f.tickets.AddResponse(f.ctx, outsider, ticket.ID, ResponseInput{Content: "hi"})
		requireKind(t, err, apperrors.CodeCrossTenantAccess)

		_, err = f.tickets.ListResponses(f.ctx, outsider, ticket.ID)
		requireKind(t, err, apperrors.CodeCrossTenantAccess)

		_, err = f.tickets.ListHistory(f.ctx, outsider, ticket.ID)
		requireKind(t, err, apperrors.CodeCrossTenantAccess)

		listed, err := f.tickets.ListTickets(f.ctx, outsider, TicketListFilter{})
		require.NoError(t, err)
		assert.Empty(t, listed)
	}

	err := f.tickets.DeleteTicket(f.ctx, admin2, ticket.ID)
	requireKind(t, err, apperrors.CodeCrossTenantAccess)

	detail, err := f.tickets.GetTicket(f.ctx, customer1, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", detail.Ticket.Title)
}

func TestCustomerStatusChangeIgnored(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	ticket := f.openTicket(t, customer, "Typo")

	status := domain.TicketStatusArchived
	priority := domain.TicketPriorityUrgent
	title := "Typo in invoice"
	updated, err := f.tickets.UpdateTicket(f.ctx, customer, ticket.ID, TicketPatch{
		Title:    &title,
		Status:   &status,
		Priority: &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.Equal(t, ticket.Priority, updated.Priority)
	assert.Equal(t, "Typo in invoice", updated.Title)
	assert.Empty(t, f.recorder.ofType(events.EventTicketStatusChanged))
}

func TestCustomerCannotUpdateOthersTicket(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, c1 := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	_, c2 := f.addUser(t, admin, domain.RoleCustomer, "c2@acme.test")
	ticket := f.openTicket(t, c1, "Private")

	_, err := f.tickets.GetTicket(f.ctx, c2, ticket.ID)
	requireKind(t, err, apperrors.CodeInsufficientRole)

	title := "mine now"
	_, err = f.tickets.UpdateTicket(f.ctx, c2, ticket.ID, TicketPatch{Title: &title})
	requireKind(t, err, apperrors.CodeNotOwner)
}

func TestListTicketsScopesCustomers(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, agent := f.addUser(t, admin, domain.RoleAgent, "agent@acme.test")
	_, c1 := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	_, c2 := f.addUser(t, admin, domain.RoleCustomer, "c2@acme.test")

	own := f.openTicket(t, c1, "c1 ticket")
	f.openTicket(t, c2, "c2 ticket")
	f.openTicket(t, agent, "agent ticket")

	mine, err := f.tickets.ListTickets(f.ctx, c1, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, own.ID, mine[0].ID)

	all, err := f.tickets.ListTickets(f.ctx, agent, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	term := "c2"
	searched, err := f.tickets.ListTickets(f.ctx, agent, TicketListFilter{SearchTerm: &term})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "c2 ticket", searched[0].Title)
}

func TestStaffUpdateRecordsHistoryAndEvents(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	agentUser, agent := f.addUser(t, admin, domain.RoleAgent, "agent@acme.test")
	_, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	ticket := f.openTicket(t, customer, "Slow site")

	status := domain.TicketStatusInProgress
	priority := domain.TicketPriorityHigh
	updated, err := f.tickets.UpdateTicket(f.ctx, agent, ticket.ID, TicketPatch{
		Status:     &status,
		Priority:   &priority,
		AssignedTo: &agentUser.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, status, updated.Status)
	assert.Equal(t, priority, updated.Priority)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, agentUser.ID, *updated.AssignedTo)
	assert.Greater(t, updated.Version, ticket.Version)

	staffHistory, err := f.tickets.ListHistory(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	require.Len(t, staffHistory, 3)
	assert.Equal(t, domain.ChangeTypePriority, staffHistory[0].ChangeType)
	assert.Equal(t, domain.ChangeTypeStatus, staffHistory[1].ChangeType)
	assert.Equal(t, domain.ChangeTypeAssignee, staffHistory[2].ChangeType)

	customerHistory, err := f.tickets.ListHistory(f.ctx, customer, ticket.ID)
	require.NoError(t, err)
	require.Len(t, customerHistory, 1)
	assert.Equal(t, domain.ChangeTypeStatus, customerHistory[0].ChangeType)

	assert.Len(t, f.recorder.ofType(events.EventTicketStatusChanged), 1)
	assert.Len(t, f.recorder.ofType(events.EventTicketAssigned), 1)

	unassigned, err := f.tickets.UpdateTicket(f.ctx, admin, ticket.ID, TicketPatch{Unassign: true})
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedTo)
}

func TestAssignmentRejectsInvalidAssignee(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	customerUser, customer := f.addUser(t, admin, domain.RoleCustomer, "c1@acme.test")
	agentUser, _ := f.addUser(t, admin, domain.RoleAgent, "agent@acme.test")
	_, otherAdmin := f.signup(t, "Globex", "root@globex.test")
	foreignAgent, _ := f.addUser(t, otherAdmin, domain.RoleAgent, "agent@globex.test")
	ticket := f.openTicket(t, customer, "Assign me")

	for _, assignee := range []string{customerUser.ID, foreignAgent.ID, "missing-user"} {
		id := assignee
		_, err := f.tickets.UpdateTicket(f.ctx, admin, ticket.ID, TicketPatch{AssignedTo: &id})
		requireKind(t, err, apperrors.CodeInvalidAssignee)
	}

	_, err := f.users.DeactivateUser(f.ctx, admin, agentUser.ID)
	require.NoError(t, err)
	_, err = f.tickets.UpdateTicket(f.ctx, admin, ticket.ID, TicketPatch{AssignedTo: &agentUser.ID})
	requireKind(t, err, apperrors.CodeInvalidAssignee)
}

func TestInvalidStatusRejected(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	ticket := f.openTicket(t, admin, "Bad status")

	status := domain.TicketStatus("done")
	_, err := f.tickets.UpdateTicket(f.ctx, admin, ticket.ID, TicketPatch{Status: &status})
	requireKind(t, err, apperrors.CodeInvalidStatus)
}

func TestDeleteTicketAdminOnly(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	_, agent := f.addUser(t, admin, domain.RoleAgent, "agent@acme.test")
	ticket := f.openTicket(t, agent, "Remove me")
	_, err := f.tickets.AddResponse(f.ctx, agent, ticket.ID, ResponseInput{Content: "note"})
	require.NoError(t, err)

	err = f.tickets.DeleteTicket(f.ctx, agent, ticket.ID)
	requireKind(t, err, apperrors.CodeInsufficientRole)

	require.NoError(t, f.tickets.DeleteTicket(f.ctx, admin, ticket.ID))
	_, err = f.tickets.GetTicket(f.ctx, admin, ticket.ID)
	requireKind(t, err, apperrors.CodeNotFound)
}

func TestMissingTicketIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")

	_, err := f.tickets.GetTicket(f.ctx, admin, "nope")
	requireKind(t, err, apperrors.CodeNotFound)
	_, err = f.tickets.AddResponse(f.ctx, admin, "nope", ResponseInput{Content: "x"})
	requireKind(t, err, apperrors.CodeNotFound)
	_, err = f.tickets.UpdateTicket(f.ctx, admin, "nope", TicketPatch{})
	requireKind(t, err, apperrors.CodeNotFound)
}

func TestEmptyResponseRejected(t *testing.T) {
	f := newFixture(t)
	_, admin := f.signup(t, "Acme", "root@acme.test")
	ticket := f.openTicket(t, admin, "Empty")

	_, err := f.tickets.AddResponse(f.ctx, admin, ticket.ID, ResponseInput{Content: "   "})
	requireKind(t, err, apperrors.CodeValidationFailed)
}
