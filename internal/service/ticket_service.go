package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/authz"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/events"
	"github.com/deskforge/helpdesk/internal/lifecycle"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows: every call authorizes the actor
// against the stored ticket, then applies lifecycle rules inside a transaction.
type TicketService struct {
	store     repository.Store
	publisher publisher
	logger    *zap.Logger
	now       func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput = lifecycle.CreateInput

// TicketPatch describes a partial ticket update.
type TicketPatch = lifecycle.Patch

// TicketListFilter describes listing filters. Tenant and ownership scoping
// are applied by the service, never taken from the caller.
type TicketListFilter struct {
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketDetail is a ticket with the responses visible to the viewer.
type TicketDetail struct {
	Ticket    domain.Ticket
	Responses []domain.Response
}

// ResponseInput describes a new response.
type ResponseInput struct {
	Content    string
	IsInternal bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	logger := nopIfNil(deps.Logger)
	return &TicketService{
		store:     deps.Store,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger, now: clock},
		logger:    logger,
		now:       clock,
	}
}

// CreateTicket files a ticket owned by the actor in the actor's organization.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	grant, err := authz.Authorize(actor, authz.OpCreate, authz.TenantTarget(authz.KindTicket, actor))
	if err != nil {
		return nil, err
	}
	ticket, err := lifecycle.NewTicket(actor, grant, input, s.now())
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if ticket.AssignedTo != nil {
			if err := checkAssignee(ctx, repos, ticket, *ticket.AssignedTo); err != nil {
				return err
			}
		}
		return repos.Tickets.Create(ctx, ticket)
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	s.publisher.publish(ctx, events.Event{
		Type:           events.EventTicketCreated,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          eventActor(actor),
		Payload: events.TicketCreatedPayload{
			CreatedBy: ticket.CreatedBy,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	if ticket.AssignedTo != nil {
		s.publishAssigned(ctx, actor, ticket)
	}
	return ticket, nil
}

// ListTickets returns tickets visible to the actor. Customers only ever see
// tickets they created.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	grant, err := authz.Authorize(actor, authz.OpList, authz.TenantTarget(authz.KindTicket, actor))
	if err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		OrganizationID: actor.OrganizationID,
		AssignedTo:     filter.AssignedTo,
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		SearchTerm:     filter.SearchTerm,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}
	if grant.Scope == authz.ScopeOwn {
		owner := actor.UserID
		repoFilter.CreatedBy = &owner
	}
	if filter.AssignedTo != nil && uuid.Validate(*filter.AssignedTo) != nil {
		return []domain.Ticket{}, nil
	}
	tickets, err := s.store.Repositories().Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	return tickets, nil
}

// GetTicket returns the ticket with its responses filtered for the actor.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetail, error) {
	repos := s.store.Repositories()
	ticket, err := s.loadTicket(ctx, repos, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := authz.Authorize(actor, authz.OpRead, authz.TicketTarget(ticket)); err != nil {
		return nil, err
	}
	responses, err := s.visibleResponses(ctx, repos, actor, ticket)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: *ticket, Responses: responses}, nil
}

// UpdateTicket applies the permitted subset of patch. Fields the actor may
// not change are ignored.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	var (
		updated *domain.Ticket
		changes []lifecycle.Change
	)
	err := withRetry(ctx, s.store, func(repos repository.Repositories) error {
		ticket, err := s.lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		grant, err := authz.Authorize(actor, authz.OpUpdate, authz.TicketTarget(ticket))
		if err != nil {
			return err
		}
		if lifecycle.WantsAssignee(grant, patch) {
			if err := checkAssignee(ctx, repos, ticket, *patch.AssignedTo); err != nil {
				return err
			}
		}
		changes, err = lifecycle.Apply(actor, grant, ticket, patch, s.now())
		if err != nil {
			return err
		}
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := recordChanges(ctx, repos, actor, ticket.ID, changes); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	s.publisher.publish(ctx, events.Event{
		Type:           events.EventTicketUpdated,
		OrganizationID: updated.OrganizationID,
		TicketID:       updated.ID,
		Actor:          eventActor(actor),
	})
	for _, change := range changes {
		switch change.Type {
		case domain.ChangeTypeStatus:
			s.publisher.publish(ctx, events.Event{
				Type:           events.EventTicketStatusChanged,
				OrganizationID: updated.OrganizationID,
				TicketID:       updated.ID,
				Actor:          eventActor(actor),
				Payload: events.TicketStatusChangedPayload{
					CreatedBy: updated.CreatedBy,
					OldStatus: change.Old["status"].(domain.TicketStatus),
					NewStatus: change.New["status"].(domain.TicketStatus),
				},
			})
		case domain.ChangeTypeAssignee:
			s.publishAssigned(ctx, actor, updated)
		}
	}
	return updated, nil
}

// DeleteTicket removes a ticket with its responses and history.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := s.lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		if _, err := authz.Authorize(actor, authz.OpDelete, authz.TicketTarget(ticket)); err != nil {
			return err
		}
		return repos.Tickets.Delete(ctx, ticket.ID)
	})
	if err != nil {
		return storeError(err, "ticket")
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.String("actor_id", actor.UserID))
	return nil
}

// AddResponse appends a response. A response on a resolved or archived
// ticket reopens it in the same transaction, so the two commit together.
func (s *TicketService) AddResponse(ctx context.Context, actor domain.Actor, ticketID string, input ResponseInput) (*domain.Response, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	var (
		response *domain.Response
		ticket   *domain.Ticket
		reopen   lifecycle.Change
		reopened bool
	)
	err := withRetry(ctx, s.store, func(repos repository.Repositories) error {
		var err error
		ticket, err = s.lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		grant, err := authz.Authorize(actor, authz.OpRespond, authz.ResponseTarget(ticket))
		if err != nil {
			return err
		}
		response = &domain.Response{
			TicketID:   ticket.ID,
			UserID:     actor.UserID,
			Content:    content,
			IsInternal: input.IsInternal && grant.InternalNotes,
		}
		if err := repos.Responses.Create(ctx, response); err != nil {
			return err
		}
		reopen, reopened = lifecycle.Reopen(ticket, s.now())
		if !reopened {
			return nil
		}
		ticket.UpdatedAt = s.now()
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return recordChanges(ctx, repos, actor, ticket.ID, []lifecycle.Change{reopen})
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	s.publisher.publish(ctx, events.Event{
		Type:           events.EventResponseAdded,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          eventActor(actor),
		Payload: events.ResponseAddedPayload{
			ResponseID:  response.ID,
			AuthorID:    response.UserID,
			CreatedBy:   ticket.CreatedBy,
			IsInternal:  response.IsInternal,
			BodyPreview: stringPreview(response.Content, 120),
		},
	})
	if reopened {
		s.publisher.publish(ctx, events.Event{
			Type:           events.EventTicketReopened,
			OrganizationID: ticket.OrganizationID,
			TicketID:       ticket.ID,
			Actor:          eventActor(actor),
			Payload: events.TicketStatusChangedPayload{
				CreatedBy: ticket.CreatedBy,
				OldStatus: reopen.Old["status"].(domain.TicketStatus),
				NewStatus: ticket.Status,
			},
		})
	}
	return response, nil
}

// ListResponses returns the ticket's responses visible to the actor.
func (s *TicketService) ListResponses(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Response, error) {
	repos := s.store.Repositories()
	ticket, err := s.loadTicket(ctx, repos, ticketID)
	if err != nil {
		return nil, err
	}
	return s.visibleResponses(ctx, repos, actor, ticket)
}

// ListHistory returns the ticket's audit trail. Customers see only status
// changes and reopens of their own tickets.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	repos := s.store.Repositories()
	ticket, err := s.loadTicket(ctx, repos, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := authz.Authorize(actor, authz.OpRead, authz.TicketTarget(ticket)); err != nil {
		return nil, err
	}
	history, err := repos.History.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "ticket history")
	}
	if actor.IsStaff() {
		return history, nil
	}
	allowed := make([]domain.TicketHistory, 0, len(history))
	for _, entry := range history {
		if entry.ChangeType == domain.ChangeTypeStatus || entry.ChangeType == domain.ChangeTypeReopen {
			allowed = append(allowed, entry)
		}
	}
	return allowed, nil
}

func (s *TicketService) visibleResponses(ctx context.Context, repos repository.Repositories, actor domain.Actor, ticket *domain.Ticket) ([]domain.Response, error) {
	if _, err := authz.Authorize(actor, authz.OpList, authz.ResponseTarget(ticket)); err != nil {
		return nil, err
	}
	responses, err := repos.Responses.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "response")
	}
	return authz.FilterResponses(actor, ticket, responses), nil
}

func (s *TicketService) loadTicket(ctx context.Context, repos repository.Repositories, id string) (*domain.Ticket, error) {
	ticket, err := repos.Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	return ticket, nil
}

func (s *TicketService) lockTicket(ctx context.Context, repos repository.Repositories, id string) (*domain.Ticket, error) {
	ticket, err := repos.Tickets.GetForUpdate(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, err
}

func (s *TicketService) publishAssigned(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) {
	s.publisher.publish(ctx, events.Event{
		Type:           events.EventTicketAssigned,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          eventActor(actor),
		Payload:        events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
	})
}

func checkAssignee(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, assigneeID string) error {
	if uuid.Validate(assigneeID) != nil {
		return lifecycle.ValidateAssignee(ticket, nil)
	}
	assignee, err := repos.Users.GetByID(ctx, assigneeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.ValidateAssignee(ticket, nil)
	}
	if err != nil {
		return err
	}
	return lifecycle.ValidateAssignee(ticket, assignee)
}

func recordChanges(ctx context.Context, repos repository.Repositories, actor domain.Actor, ticketID string, changes []lifecycle.Change) error {
	for _, change := range changes {
		entry := &domain.TicketHistory{
			TicketID:   ticketID,
			ChangedBy:  actor.UserID,
			ChangeType: change.Type,
			OldValue:   change.Old,
			NewValue:   change.New,
		}
		if err := repos.History.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{UserID: actor.UserID, Role: actor.Role}
}
