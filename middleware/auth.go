// middleware/auth.go
package middleware

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts user identity and roles set by the Gateway.
// The Gateway verifies the Telegram initData signature and forwards the
// resolved Telegram user id in X-User-ID; we only parse it here.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userIDStr := c.Get("X-User-ID")
		rolesStr := c.Get("X-User-Roles")

		// Enforce user context on secured paths (everything under /s/)
		path := c.Path()
		isSecured := strings.HasPrefix(path, "/s/")
		if isSecured && userIDStr == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		if userIDStr != "" {
			userID, err := strconv.ParseInt(userIDStr, 10, 64)
			if err != nil || userID <= 0 {
				log.Printf("❌ [USER_CTX] Malformed X-User-ID %q on %s", userIDStr, path)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "malformed X-User-ID",
				})
			}
			c.Locals("user_id", userID)
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// RequireRole guards admin routes behind a role set by the Gateway.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		log.Printf("🚫 [USER_CTX] Role %q required for %s", role, c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role",
		})
	}
}
