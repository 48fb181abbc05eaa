package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// hideForeign renders another tenant's entity as missing on id-addressed
// routes, so ids cannot be probed across organizations.
func hideForeign(err error, resource string) error {
	if apperrors.IsKind(err, apperrors.CodeCrossTenantAccess) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func pagination(c *fiber.Ctx) (int, int, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
	}
	return v, nil
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}
