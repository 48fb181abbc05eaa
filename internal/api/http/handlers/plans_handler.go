package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/helpdesk/internal/api/dto"
	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/service"
)

// PlansHandler serves the pricing catalogue.
type PlansHandler struct {
	billing *service.BillingService
}

// NewPlansHandler constructs handler.
func NewPlansHandler(billing *service.BillingService) *PlansHandler {
	return &PlansHandler{billing: billing}
}

// ListPlans GET /plans. Only active plans are public.
func (h *PlansHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.billing.ListPlans(c.UserContext(), domain.Actor{}, false)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, planList(plans))
}

// ListAllPlans GET /admin/plans.
func (h *PlansHandler) ListAllPlans(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	plans, err := h.billing.ListPlans(c.UserContext(), actor, true)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, planList(plans))
}

// CreatePlan POST /admin/plans.
func (h *PlansHandler) CreatePlan(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreatePlanRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cycle, err := domain.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		return err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	plan, err := h.billing.CreatePlan(c.UserContext(), actor, service.PlanInput{
		Name:         req.Name,
		MaxUsers:     req.MaxUsers,
		Price:        req.Price,
		BillingCycle: cycle,
		IsActive:     active,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewPlanResponse(plan))
}

// UpdatePlan PATCH /admin/plans/:id.
func (h *PlansHandler) UpdatePlan(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePlanRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patch := service.PlanPatch{
		Name:     req.Name,
		MaxUsers: req.MaxUsers,
		Price:    req.Price,
		IsActive: req.IsActive,
	}
	if req.BillingCycle != nil {
		cycle, err := domain.ParseBillingCycle(*req.BillingCycle)
		if err != nil {
			return err
		}
		patch.BillingCycle = &cycle
	}
	plan, err := h.billing.UpdatePlan(c.UserContext(), actor, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewPlanResponse(plan))
}

func planList(plans []domain.PricingPlan) []dto.PlanResponse {
	items := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, dto.NewPlanResponse(&plans[i]))
	}
	return items
}
