package auth

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/helpdesk/internal/domain"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// RequireRole admits only callers holding one of the allowed roles. Tenant
// routes rely on the authorization engine instead; this guards the
// platform-operator surface.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFromContext(c)
		if err != nil {
			return err
		}
		if !slices.Contains(allowed, actor.Role) {
			return apperrors.NewInsufficientRole("insufficient role")
		}
		return c.Next()
	}
}
