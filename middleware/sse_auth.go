// tarot-miniapp-backend/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"tarot-miniapp-backend/services"
)

// SSEAuthMiddleware validates `token` from query params via AuthServiceClient.
// EventSource cannot set headers, so SSE routes authenticate with a query
// param instead of the gateway's X-User-ID.
//
// Usage:
//
//	app.Get("/s/promocodes/stream", middleware.SSEAuthMiddleware(authClient), promoService.StreamUserPromoGrantsSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))
		if accessToken == "" {
			log.Printf("[SSEAuth] ❌ Missing token query param for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		resp, err := authClient.ValidateSession(accessToken)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for token (prefix: %.10s...): %v", accessToken, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if resp.IsBanned {
			log.Printf("[SSEAuth] 🚫 Banned user %d rejected on %s", resp.UserID, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden",
			})
		}

		c.Locals("user_id", resp.UserID)
		c.Locals("user_roles", resp.Roles)

		log.Printf("[SSEAuth] ✅ Authenticated user %d", resp.UserID)
		return c.Next()
	}
}
