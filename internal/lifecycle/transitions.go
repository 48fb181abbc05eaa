package lifecycle

import "github.com/deskforge/helpdesk/internal/domain"

// transitions maps actor role and current status to the statuses the actor
// may set. Staff may move a ticket between any two statuses; customers may
// not change status at all.
var transitions = buildTransitions()

func buildTransitions() map[domain.Role]map[domain.TicketStatus][]domain.TicketStatus {
	flat := make(map[domain.TicketStatus][]domain.TicketStatus, len(domain.TicketStatuses))
	for _, from := range domain.TicketStatuses {
		flat[from] = domain.TicketStatuses
	}
	return map[domain.Role]map[domain.TicketStatus][]domain.TicketStatus{
		domain.RoleAdmin:    flat,
		domain.RoleAgent:    flat,
		domain.RoleCustomer: {},
	}
}

// CanTransition reports whether role may move a ticket from one status to another.
func CanTransition(role domain.Role, from, to domain.TicketStatus) bool {
	for _, candidate := range transitions[role][from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTargets lists the statuses role may set on a ticket currently in from.
func AllowedTargets(role domain.Role, from domain.TicketStatus) []domain.TicketStatus {
	return append([]domain.TicketStatus(nil), transitions[role][from]...)
}
