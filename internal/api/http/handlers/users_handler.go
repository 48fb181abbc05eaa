package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/helpdesk/internal/api/dto"
	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/service"
)

// UsersHandler exposes account management for organization admins.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// CreateUser POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseTenantRole(req.Role)
	if err != nil {
		return err
	}
	user, err := h.users.CreateUser(c.UserContext(), actor, service.UserCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewUserResponse(user))
}

// ListUsers GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	users, err := h.users.ListUsers(c.UserContext(), actor, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return data(c, http.StatusOK, items)
}

// GetUser GET /users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return hideForeign(err, "user")
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// UpdateUser PATCH /users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.UserUpdateInput{Name: req.Name}
	if req.Role != nil {
		role, err := domain.ParseTenantRole(*req.Role)
		if err != nil {
			return err
		}
		input.Role = &role
	}
	if req.Status != nil {
		status, err := domain.ParseUserStatus(*req.Status)
		if err != nil {
			return err
		}
		input.Status = &status
	}
	user, err := h.users.UpdateUser(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return hideForeign(err, "user")
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// DeactivateUser POST /users/:id/deactivate.
func (h *UsersHandler) DeactivateUser(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.users.DeactivateUser(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return hideForeign(err, "user")
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// DeleteUser DELETE /users/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.UserContext(), actor, c.Params("id")); err != nil {
		return hideForeign(err, "user")
	}
	return c.SendStatus(http.StatusNoContent)
}
