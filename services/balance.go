package services

import (
	"errors"
	"fmt"

	"tarot-miniapp-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientBalance is returned when a debit would drive the messages
// balance below zero. The balance is left unchanged.
var ErrInsufficientBalance = errors.New("insufficient messages balance")

// BalanceService owns the per-user XP total and spendable messages balance.
type BalanceService struct {
	DB *gorm.DB
}

func NewBalanceService(db *gorm.DB) *BalanceService {
	return &BalanceService{DB: db}
}

func (s *BalanceService) GetXP(userID int64) (int64, error) {
	return getXP(s.DB, userID)
}

func (s *BalanceService) GetMessagesBalance(userID int64) (int64, error) {
	return getMessagesBalance(s.DB, userID)
}

// ChangeMessagesBalance credits (delta > 0) or debits (delta < 0) the
// messages balance. Debits fail with ErrInsufficientBalance instead of
// clamping at zero.
func (s *BalanceService) ChangeMessagesBalance(userID int64, delta int64) error {
	if delta >= 0 {
		return creditMessages(s.DB, userID, delta)
	}
	return debitMessages(s.DB, userID, -delta)
}

// The helpers below take the DB handle explicitly so the reward payout can run
// them inside its own transaction.

func getXP(db *gorm.DB, userID int64) (int64, error) {
	var row models.UserXP
	if err := db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.XP, nil
}

func getMessagesBalance(db *gorm.DB, userID int64) (int64, error) {
	var user models.User
	if err := db.Select("messages_balance").Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return user.MessagesBalance, nil
}

// creditXP upserts the user_xp row with an atomic in-database add, so
// concurrent credits never overwrite each other.
func creditXP(db *gorm.DB, userID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"xp": gorm.Expr("user_xp.xp + excluded.xp"),
		}),
	}).Create(&models.UserXP{UserID: userID, XP: amount}).Error
}

func creditMessages(db *gorm.DB, userID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	res := db.Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("messages_balance", gorm.Expr("messages_balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("credit messages: user %d not found", userID)
	}
	return nil
}

// debitMessages subtracts amount only when the row still covers it; the
// balance guard lives in the WHERE clause so check and write are one statement.
func debitMessages(db *gorm.DB, userID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	res := db.Model(&models.User{}).
		Where("user_id = ? AND messages_balance >= ?", userID, amount).
		Update("messages_balance", gorm.Expr("messages_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}
