package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/helpdesk/internal/api/dto"
	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/service"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// OrganizationHandler serves organization metadata and subscriptions.
type OrganizationHandler struct {
	organizations *service.OrganizationService
	billing       *service.BillingService
}

// NewOrganizationHandler constructs handler.
func NewOrganizationHandler(organizations *service.OrganizationService, billing *service.BillingService) *OrganizationHandler {
	return &OrganizationHandler{organizations: organizations, billing: billing}
}

// GetOwn GET /organization.
func (h *OrganizationHandler) GetOwn(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	org, err := h.organizations.GetOwn(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOrganizationResponse(org))
}

// Subscribe POST /organization/subscription.
func (h *OrganizationHandler) Subscribe(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.SubscribeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.PlanID == "" {
		return apperrors.NewValidationError("plan_id required", nil)
	}
	sub, err := h.billing.Subscribe(c.UserContext(), actor, actor.OrganizationID, req.PlanID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewSubscriptionResponse(sub))
}

// Cancel DELETE /organization/subscription.
func (h *OrganizationHandler) Cancel(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	org, err := h.billing.Cancel(c.UserContext(), actor, actor.OrganizationID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOrganizationResponse(org))
}

// ListOrganizations GET /admin/organizations.
func (h *OrganizationHandler) ListOrganizations(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	orgs, err := h.organizations.List(c.UserContext(), actor, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		items = append(items, dto.NewOrganizationResponse(&orgs[i]))
	}
	return data(c, http.StatusOK, items)
}

// GetOrganization GET /admin/organizations/:id.
func (h *OrganizationHandler) GetOrganization(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	org, err := h.organizations.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOrganizationResponse(org))
}
