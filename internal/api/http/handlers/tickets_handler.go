package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/helpdesk/internal/api/dto"
	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/service"
)

// TicketsHandler manages ticket endpoints for every tenant role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		AssignedTo:  req.AssignedTo,
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(strings.ToLower(strings.TrimSpace(*req.Priority)))
		input.Priority = &priority
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return data(c, http.StatusOK, items)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return hideForeign(err, "ticket")
	}
	return data(c, http.StatusOK, dto.TicketDetailResponse{
		TicketResponse: dto.NewTicketResponse(&detail.Ticket),
		Responses:      dto.NewResponseList(detail.Responses),
	})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patch := service.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(strings.ToLower(strings.TrimSpace(*req.Priority)))
		patch.Priority = &priority
	}
	if req.Status != nil {
		status := domain.TicketStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		patch.Status = &status
	}
	if req.AssignedTo.Set {
		if req.AssignedTo.Value == nil {
			patch.Unassign = true
		} else {
			patch.AssignedTo = req.AssignedTo.Value
		}
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, c.Params("id"), patch)
	if err != nil {
		return hideForeign(err, "ticket")
	}
	return data(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return hideForeign(err, "ticket")
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListResponses GET /tickets/:id/responses.
func (h *TicketsHandler) ListResponses(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	responses, err := h.service.ListResponses(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return hideForeign(err, "ticket")
	}
	return data(c, http.StatusOK, dto.NewResponseList(responses))
}

// AddResponse POST /tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateResponseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	response, err := h.service.AddResponse(c.UserContext(), actor, c.Params("id"), service.ResponseInput{
		Content:    req.Content,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return hideForeign(err, "ticket")
	}
	return data(c, http.StatusCreated, dto.NewResponseResponse(response))
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return hideForeign(err, "ticket")
	}
	items := make([]dto.HistoryResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.NewHistoryResponse(&history[i]))
	}
	return data(c, http.StatusOK, items)
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitList(c.Query("status")) {
		status, err := domain.ParseTicketStatus(part)
		if err != nil {
			return filter, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitList(c.Query("priority")) {
		priority, err := domain.ParseTicketPriority(part)
		if err != nil {
			return filter, err
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	if assigned := strings.TrimSpace(c.Query("assigned_to")); assigned != "" {
		filter.AssignedTo = &assigned
	}
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		filter.SearchTerm = &term
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset
	return filter, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
