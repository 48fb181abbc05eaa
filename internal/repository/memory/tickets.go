package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
)

type ticketRepo struct{ v *view }

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedTo = copyString(t.AssignedTo)
	t.ResolvedAt = copyTime(t.ResolvedAt)
	return t
}

func (r *ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.users[ticket.CreatedBy]; !ok {
			return repository.ErrReferenced
		}
		if ticket.AssignedTo != nil {
			if _, ok := st.users[*ticket.AssignedTo]; !ok {
				return repository.ErrReferenced
			}
		}
		now := r.v.now()
		ticket.ID = newID()
		ticket.Version = 1
		ticket.CreatedAt, ticket.UpdatedAt = now, now
		st.tickets[ticket.ID] = row[domain.Ticket]{seq: st.next(), val: cloneTicket(*ticket)}
		return nil
	})
}

func (r *ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	return r.v.do(ctx, func(st *state) error {
		existing, ok := st.tickets[ticket.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		if existing.val.Version != ticket.Version {
			return repository.ErrVersionConflict
		}
		if ticket.AssignedTo != nil {
			if _, ok := st.users[*ticket.AssignedTo]; !ok {
				return repository.ErrReferenced
			}
		}
		stored := existing.val
		stored.Title = ticket.Title
		stored.Description = ticket.Description
		stored.Category = ticket.Category
		stored.Priority = ticket.Priority
		stored.Status = ticket.Status
		stored.AssignedTo = copyString(ticket.AssignedTo)
		stored.ResolvedAt = copyTime(ticket.ResolvedAt)
		stored.Version++
		stored.UpdatedAt = r.v.now()
		existing.val = stored
		st.tickets[ticket.ID] = existing

		ticket.Version = stored.Version
		ticket.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *ticketRepo) Delete(ctx context.Context, id string) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.tickets[id]; !ok {
			return pgx.ErrNoRows
		}
		delete(st.tickets, id)
		for rid, resp := range st.responses {
			if resp.val.TicketID == id {
				delete(st.responses, rid)
			}
		}
		for hid, h := range st.history {
			if h.val.TicketID == id {
				delete(st.history, hid)
			}
		}
		return nil
	})
}

func (r *ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.v.do(ctx, func(st *state) error {
		existing, ok := st.tickets[id]
		if !ok {
			return pgx.ErrNoRows
		}
		t := cloneTicket(existing.val)
		out = &t
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; transactions are already serialized.
func (r *ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.v.do(ctx, func(st *state) error {
		search := ""
		if filter.SearchTerm != nil {
			search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		}
		var matched []domain.Ticket
		for _, existing := range st.tickets {
			t := existing.val
			switch {
			case t.OrganizationID != filter.OrganizationID:
				continue
			case filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy:
				continue
			case filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo):
				continue
			case len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status):
				continue
			case len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, t.Priority):
				continue
			case search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
				!strings.Contains(strings.ToLower(t.Description), search):
				continue
			}
			matched = append(matched, cloneTicket(t))
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
				return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
			}
			return matched[i].ID < matched[j].ID
		})
		out = page(matched, filter.Limit, filter.Offset)
		return nil
	})
	return out, err
}

type responseRepo struct{ v *view }

func (r *responseRepo) Create(ctx context.Context, resp *domain.Response) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.tickets[resp.TicketID]; !ok {
			return repository.ErrReferenced
		}
		resp.ID = newID()
		resp.CreatedAt = r.v.now()
		st.responses[resp.ID] = row[domain.Response]{seq: st.next(), val: *resp}
		return nil
	})
}

func (r *responseRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error) {
	var out []domain.Response
	err := r.v.do(ctx, func(st *state) error {
		for _, resp := range st.responses.ordered() {
			if resp.TicketID == ticketID {
				out = append(out, resp)
			}
		}
		return nil
	})
	return out, err
}

type historyRepo struct{ v *view }

func (r *historyRepo) Create(ctx context.Context, history *domain.TicketHistory) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.tickets[history.TicketID]; !ok {
			return repository.ErrReferenced
		}
		history.ID = newID()
		history.CreatedAt = r.v.now()
		stored := *history
		stored.OldValue = copyMap(history.OldValue)
		stored.NewValue = copyMap(history.NewValue)
		st.history[history.ID] = row[domain.TicketHistory]{seq: st.next(), val: stored}
		return nil
	})
}

func (r *historyRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	err := r.v.do(ctx, func(st *state) error {
		for _, h := range st.history.ordered() {
			if h.TicketID == ticketID {
				h.OldValue = copyMap(h.OldValue)
				h.NewValue = copyMap(h.NewValue)
				out = append(out, h)
			}
		}
		return nil
	})
	return out, err
}
