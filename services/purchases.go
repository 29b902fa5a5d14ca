package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrUnknownPack is returned when an order does not match a storefront tier.
var ErrUnknownPack = errors.New("unknown message pack")

// PurchaseService creates message-pack orders and settles them once the
// payment provider confirms. Settlement credits the balance and advances the
// purchase tasks, whose bundles the reward engine pays out.
type PurchaseService struct {
	DB    *gorm.DB
	Tasks *TaskService
}

func NewPurchaseService(db *gorm.DB, tasks *TaskService) *PurchaseService {
	return &PurchaseService{DB: db, Tasks: tasks}
}

// CreatePurchase opens a pending order for a storefront pack, applying the
// user's promo discount when a code is supplied. The final price is frozen
// here; the code is only burned when the order is actually paid.
func (s *PurchaseService) CreatePurchase(userID int64, messagesCount int64, promoCode *string) (*models.MessagePurchase, error) {
	pack, ok := models.PackByMessagesCount(messagesCount)
	if !ok {
		return nil, ErrUnknownPack
	}

	purchase := models.MessagePurchase{
		ID:            uuid.NewString(),
		UserID:        userID,
		MessagesCount: pack.MessagesCount,
		BasePriceRub:  pack.PriceRub,
		FinalPriceRub: pack.PriceRub,
		Status:        models.PurchaseStatusPending,
	}

	if promoCode != nil && *promoCode != "" {
		percent, err := s.Tasks.Promos.DiscountForUserCode(userID, *promoCode)
		if err != nil {
			return nil, err
		}
		purchase.Promocode = promoCode
		purchase.DiscountPercent = &percent
		discounted := pack.PriceRub * (1 - float64(percent)/100)
		purchase.FinalPriceRub = math.Round(discounted*100) / 100
	}

	if err := s.DB.Create(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// MarkPaid settles an order. The pending→paid transition is a conditional
// update, so a payment confirmation delivered twice credits once. The credit
// and the promo burn share the transition's transaction; task increments run
// after commit because the reward engine manages its own atomicity.
func (s *PurchaseService) MarkPaid(purchaseID string, paidAt time.Time) error {
	var purchase models.MessagePurchase
	if err := s.DB.Where("id = ?", purchaseID).First(&purchase).Error; err != nil {
		return fmt.Errorf("purchase %s: %w", purchaseID, err)
	}

	settled := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MessagePurchase{}).
			Where("id = ? AND status = ?", purchaseID, models.PurchaseStatusPending).
			Updates(map[string]interface{}{
				"status":  models.PurchaseStatusPaid,
				"paid_at": paidAt.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already settled or expired
		}
		settled = true

		if err := creditMessages(tx, purchase.UserID, purchase.MessagesCount); err != nil {
			return err
		}
		if purchase.Promocode != nil {
			if err := s.Tasks.Promos.MarkUsed(tx, purchase.UserID, *purchase.Promocode); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !settled {
		log.Printf("[Purchases] purchase %s already settled, skipping", purchaseID)
		return nil
	}

	pack, ok := models.PackByMessagesCount(purchase.MessagesCount)
	if !ok {
		// tier removed from the storefront after the order was placed
		log.Printf("⚠️ [Purchases] no pack tier for %d messages (purchase %s)", purchase.MessagesCount, purchaseID)
		return s.Tasks.IncrementProgress(purchase.UserID, "BUY_0", 1)
	}
	if err := s.Tasks.IncrementProgress(purchase.UserID, "BUY_0", 1); err != nil {
		return err
	}
	return s.Tasks.IncrementProgress(purchase.UserID, pack.TaskCode, 1)
}

// ExpireStalePending closes pending orders older than maxAge. Returns how
// many were expired.
func (s *PurchaseService) ExpireStalePending(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res := s.DB.Model(&models.MessagePurchase{}).
		Where("status = ? AND created_at < ?", models.PurchaseStatusPending, cutoff).
		Update("status", models.PurchaseStatusExpired)
	return res.RowsAffected, res.Error
}

// ListForUser returns the user's orders, newest first.
func (s *PurchaseService) ListForUser(userID int64, limit int) ([]models.MessagePurchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var purchases []models.MessagePurchase
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&purchases).Error
	return purchases, err
}
