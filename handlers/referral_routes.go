// handlers/referral_routes.go
package handlers

import (
	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/referrals/info", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		info, err := referralService.Info(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build referral info",
				"cause": err.Error(),
			})
		}
		return c.JSON(info)
	})

	// Called by the bot when a user opens the app through someone's invite
	// link. The friend is the authenticated user; the code names the referrer.
	securedGroup.Post("/referrals/attach", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		type Req struct {
			RefCode     string `json:"ref_code"`
			DisplayName string `json:"display_name"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.RefCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "ref_code is required",
			})
		}

		if err := referralService.RegisterReferral(req.RefCode, userID, req.DisplayName); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to register referral",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"ok": true})
	})
}
