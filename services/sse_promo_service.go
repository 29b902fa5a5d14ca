package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamUserPromoGrantsSSE streams newly granted promo codes for the
// authenticated user, so the app can toast a reward the moment a task pays
// out in the background (referrals, purchase confirmations).
func (s *PromoPoolService) StreamUserPromoGrantsSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int64)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastAssignedAt time.Time

		// Initialize cursor at the latest existing grant
		var latest models.UserPromocode
		if err := s.DB.
			Where("user_id = ?", userID).
			Order("assigned_at DESC").
			First(&latest).Error; err == nil {
			lastAssignedAt = latest.AssignedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %d: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var newGrants []models.UserPromocode

				err := s.DB.
					Where("user_id = ? AND assigned_at > ?", userID, lastAssignedAt).
					Order("assigned_at ASC").
					Find(&newGrants).Error

				if err != nil {
					log.Printf("SSE query error for user %d: %v", userID, err)
					continue
				}

				if len(newGrants) == 0 {
					continue
				}

				lastAssignedAt = newGrants[len(newGrants)-1].AssignedAt

				for _, g := range newGrants {
					payload, _ := json.Marshal(g)

					fmt.Fprintf(w,
						"event: promo\ndata: %s\n\n",
						payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
