// services/users.go
package services

import (
	"strconv"
	"strings"

	"tarot-miniapp-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// SearchUsers is the admin lookup over the local users table.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	db := s.DB.Model(&models.User{}).Limit(limit)

	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(first_name) LIKE ?",
			searchTerm, searchTerm,
		)
	}

	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	// Minimal response struct: no balances or referral internals for listings
	type UserSummary struct {
		UserID    int64   `json:"user_id"`
		Username  *string `json:"username,omitempty"`
		FirstName *string `json:"first_name,omitempty"`
		IsBanned  bool    `json:"is_banned"`
	}

	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			UserID:    u.UserID,
			Username:  u.Username,
			FirstName: u.FirstName,
			IsBanned:  u.IsBanned,
		}
	}

	return c.JSON(res)
}
