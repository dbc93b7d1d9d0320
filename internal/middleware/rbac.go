package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scholaris-io/results-api/internal/utils"
)

// RequireRole gates a route group on the role local set by JWTProtected.
// An absent or unknown role is rejected the same way as a wrong one.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			return utils.SendErrorWithCode(c, fiber.StatusForbidden, utils.CodeForbidden, "insufficient permissions", nil)
		}

		return c.Next()
	}
}
