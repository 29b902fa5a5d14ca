// handlers/promo_routes.go
package handlers

import (
	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPromoRoutes(app *fiber.App, promoService *services.PromoPoolService, authClient *services.AuthServiceClient) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/promocodes/list", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		promos, err := promoService.ListForUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list promocodes",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"promocodes": promos})
	})

	// SSE stream of newly granted codes. EventSource cannot send headers, so
	// this route authenticates via ?token= against the auth service instead
	// of the gateway user context.
	app.Get("/s/promocodes/stream",
		middleware.SSEAuthMiddleware(authClient),
		promoService.StreamUserPromoGrantsSSE,
	)
}
