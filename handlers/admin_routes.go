// handlers/admin_routes.go
package handlers

import (
	"errors"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(
	app *fiber.App,
	taskService *services.TaskService,
	balanceService *services.BalanceService,
	promoService *services.PromoPoolService,
	userService *services.UserService,
) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID int64  `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID <= 0 || req.XP <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and xp must be positive",
			})
		}

		if err := taskService.AddXP(req.UserID, req.XP); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      req.XP,
		})
	})

	adminGroup.Post("/balance/change", func(c *fiber.Ctx) error {
		type Req struct {
			UserID int64  `json:"user_id"`
			Delta  int64  `json:"delta"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID <= 0 || req.Delta == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id must be positive and delta non-zero",
			})
		}

		err := balanceService.ChangeMessagesBalance(req.UserID, req.Delta)
		switch {
		case errors.Is(err, services.ErrInsufficientBalance):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "insufficient messages balance",
			})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "balance change failed",
				"cause": err.Error(),
			})
		}

		balance, err := balanceService.GetMessagesBalance(req.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read new balance",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":              "balance changed successfully",
			"user_id":              req.UserID,
			"new_messages_balance": balance,
		})
	})

	adminGroup.Post("/promos/import", func(c *fiber.Ctx) error {
		imported, err := promoService.ImportPoolsFromR2()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "promo import failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":  "promo pools imported",
			"imported": imported,
		})
	})

	adminGroup.Get("/users/search", userService.SearchUsers)
}
