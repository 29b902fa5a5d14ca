// handlers/task_routes.go
package handlers

import (
	"errors"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTaskRoutes(app *fiber.App, taskService *services.TaskService) {
	// 🔐 Secured routes — require user context from the gateway
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/tasks/list", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		categoryParam := c.Query("category")
		if categoryParam != "" {
			category := models.TaskCategory(categoryParam)
			if !validCategory(category) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "unknown task category",
					"cause": categoryParam,
				})
			}
			views, err := taskService.TasksByCategory(userID, category)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to list tasks",
					"cause": err.Error(),
				})
			}
			return c.JSON(fiber.Map{"category": category, "tasks": views})
		}

		// no category — return every tab in catalog order
		grouped := make(map[models.TaskCategory][]services.TaskView, len(models.TaskCategories))
		for _, category := range models.TaskCategories {
			views, err := taskService.TasksByCategory(userID, category)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to list tasks",
					"cause": err.Error(),
				})
			}
			grouped[category] = views
		}
		return c.JSON(fiber.Map{"tasks": grouped})
	})

	securedGroup.Post("/tasks/claim", func(c *fiber.Ctx) error {
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

		newXP, newBalance, err := taskService.ClaimReward(userID, req.TaskCode)
		switch {
		case errors.Is(err, services.ErrUnknownTask):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown task code",
				"cause": req.TaskCode,
			})
		case errors.Is(err, services.ErrTaskNotReady):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "task target not reached",
			})
		case errors.Is(err, services.ErrTaskAlreadyClaimed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "task reward already claimed",
			})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "claim failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"ok":                   true,
			"task_code":            req.TaskCode,
			"new_xp":               newXP,
			"new_messages_balance": newBalance,
		})
	})

	securedGroup.Post("/usage/track", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		if err := taskService.TrackUsage(userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to track usage",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"ok": true})
	})
}

func validCategory(category models.TaskCategory) bool {
	for _, known := range models.TaskCategories {
		if category == known {
			return true
		}
	}
	return false
}
