package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/helpdesk/internal/api/dto"
	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/service"
)

// AuthHandler exposes signup, login and password endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	org, session, err := h.auth.Signup(c.UserContext(), service.RegisterInput{
		OrganizationName: req.OrganizationName,
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, fiber.Map{
		"organization": dto.NewOrganizationResponse(org),
		"user":         dto.NewUserResponse(session.User),
		"auth":         dto.AuthResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{
		"user": dto.NewUserResponse(session.User),
		"auth": dto.AuthResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
	})
}

// ChangePassword handles POST /auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
