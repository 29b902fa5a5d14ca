// handlers/activity_routes.go
package handlers

import (
	"errors"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupActivityRoutes(app *fiber.App, activityService *services.ActivityService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	// Called by the bot/gateway when the user performs a one-shot activity
	// (enables daily tips, completes the profile, leaves a review).
	securedGroup.Post("/activity/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		type Req struct {
			TaskCode string `json:"task_code"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.TaskCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "task_code is required",
			})
		}

		err := activityService.CompleteActivity(userID, req.TaskCode)
		switch {
		case errors.Is(err, services.ErrUnknownTask):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown task code",
				"cause": req.TaskCode,
			})
		case err != nil:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to complete activity",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"ok": true, "task_code": req.TaskCode})
	})
}
