package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deskforge/helpdesk/internal/domain"
)

func sampleResponses() []domain.Response {
	return []domain.Response{
		{ID: "r1", TicketID: "t1", Content: "hello"},
		{ID: "r2", TicketID: "t1", Content: "internal", IsInternal: true},
		{ID: "r3", TicketID: "t1", Content: "reply"},
	}
}

func TestFilterResponsesHidesInternalFromCustomers(t *testing.T) {
	ticket := ticketOf(orgA, customerA.UserID)
	in := sampleResponses()

	out := FilterResponses(customerA, ticket, in)
	assert.Equal(t, []string{"r1", "r3"}, ids(out))
	assert.Len(t, in, 3, "input must not be modified")
	assert.True(t, in[1].IsInternal)

	again := FilterResponses(customerA, ticket, out)
	assert.Equal(t, out, again)
}

func TestFilterResponsesPassesThroughForStaff(t *testing.T) {
	ticket := ticketOf(orgA, customerA.UserID)
	for _, actor := range []domain.Actor{adminA, agentA} {
		out := FilterResponses(actor, ticket, sampleResponses())
		assert.Equal(t, []string{"r1", "r2", "r3"}, ids(out))
	}
}

func TestFilterResponsesOnlyInternalNote(t *testing.T) {
	note := []domain.Response{{ID: "n1", IsInternal: true}}
	ticket := ticketOf(orgA, customerA.UserID)
	assert.Empty(t, FilterResponses(customerA, ticket, note))
	assert.Equal(t, note, FilterResponses(agentA, ticket, note))
}

func ids(rs []domain.Response) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
