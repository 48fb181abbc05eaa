package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/observability"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User  *domain.User
	Actor domain.Actor
}

// AuthMiddleware validates bearer tokens and resolves the caller's identity.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. The actor is built
// from the stored account, so deactivation and role changes apply to tokens
// that were issued earlier.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthenticated("account not found")
		}
		return apperrors.NewStorageUnavailable(err)
	}
	if !user.IsActive() {
		return apperrors.NewUnauthenticated("account inactive")
	}

	c.Locals(principalKey, &Principal{User: user, Actor: ActorFor(user)})
	c.Locals(observability.LocalOrgID, user.OrganizationID)
	return c.Next()
}

// ActorFor derives the core actor from an account.
func ActorFor(user *domain.User) domain.Actor {
	return domain.Actor{UserID: user.ID, Role: user.Role, OrganizationID: user.OrganizationID}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// ActorFromContext returns the authenticated actor or Unauthenticated.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal == nil {
		return domain.Actor{}, apperrors.NewUnauthenticated("authentication required")
	}
	return principal.Actor, nil
}
