// handlers/purchase_routes.go
package handlers

import (
	"errors"
	"strconv"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPurchaseRoutes(app *fiber.App, purchaseService *services.PurchaseService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/purchases/packs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"packs": models.MessagePacks})
	})

	securedGroup.Post("/purchases", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		type Req struct {
			MessagesCount int64   `json:"messages_count"`
			Promocode     *string `json:"promocode"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		purchase, err := purchaseService.CreatePurchase(userID, req.MessagesCount, req.Promocode)
		switch {
		case errors.Is(err, services.ErrUnknownPack):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown message pack",
				"cause": strconv.FormatInt(req.MessagesCount, 10),
			})
		case err != nil:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to create purchase",
				"cause": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(purchase)
	})

	securedGroup.Get("/purchases/list", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		purchases, err := purchaseService.ListForUser(userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list purchases",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"purchases": purchases})
	})
}
