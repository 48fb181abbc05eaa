package authz

import (
	"slices"

	"github.com/deskforge/helpdesk/internal/domain"
)

// FilterResponses returns the responses of ticket visible to actor. Customers
// never see internal notes; other roles see everything. The input slice is
// not modified.
func FilterResponses(actor domain.Actor, _ *domain.Ticket, responses []domain.Response) []domain.Response {
	if actor.Role != domain.RoleCustomer {
		return slices.Clone(responses)
	}
	visible := make([]domain.Response, 0, len(responses))
	for _, r := range responses {
		if r.IsInternal {
			continue
		}
		visible = append(visible, r)
	}
	return visible
}
