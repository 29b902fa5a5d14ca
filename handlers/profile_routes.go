// handlers/profile_routes.go
package handlers

import (
	"errors"
	"log"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProfileRoutes(app *fiber.App, taskService *services.TaskService, balanceService *services.BalanceService, activityService *services.ActivityService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(int64)

		var user models.User
		if err := balanceService.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "DB error fetching user",
					"cause": err.Error(),
				})
			}
			// first visit before the bot mirror caught up — create a bare row
			user = models.User{UserID: userID}
			if err := balanceService.DB.FirstOrCreate(&user, models.User{UserID: userID}).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to create user record",
					"cause": err.Error(),
				})
			}
		}

		// opening the app counts as the daily visit; the task is already-claimed
		// on every visit after the first, which IncrementProgress tolerates
		if err := taskService.IncrementProgress(userID, "D_DAILY", 1); err != nil {
			log.Printf("⚠️ [Profile] daily visit task failed for user %d: %v", userID, err)
		}

		// re-check bot-side subscription flags; the bot service being down
		// must not break the profile, so failures only log
		if err := activityService.CompleteSubscriptionTasks(userID); err != nil {
			log.Printf("⚠️ [Profile] subscription task sync failed for user %d: %v", userID, err)
		}

		xp, err := balanceService.GetXP(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read XP",
				"cause": err.Error(),
			})
		}
		balance, err := balanceService.GetMessagesBalance(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read messages balance",
				"cause": err.Error(),
			})
		}
		completed, err := taskService.CountCompleted(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to count completed tasks",
				"cause": err.Error(),
			})
		}

		current, next := models.LevelForXP(xp)
		levelInfo := fiber.Map{
			"level":  current.Level,
			"code":   current.Code,
			"title":  current.Title,
			"min_xp": current.MinXP,
		}
		if current.MaxXP != nil {
			levelInfo["max_xp"] = *current.MaxXP
		}
		if next != nil {
			levelInfo["next_level"] = next.Code
			levelInfo["xp_to_next"] = next.MinXP - xp
		}

		return c.JSON(fiber.Map{
			"user_id":          user.UserID,
			"username":         user.Username,
			"first_name":       user.FirstName,
			"photo_url":        user.PhotoURL,
			"xp":               xp,
			"level":            levelInfo,
			"messages_balance": balance,
			"tasks_completed":  completed,
		})
	})
}
