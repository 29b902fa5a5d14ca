package services

import (
	"errors"
	"fmt"
	"time"

	"tarot-miniapp-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPromoPoolExhausted means the tier has no unassigned codes left. Reward
// payouts treat it as a warning, not a failure.
var ErrPromoPoolExhausted = errors.New("promo pool exhausted")

// candidates fetched per take; raced-away codes fall through to the next one
const promoTakeBatch = 20

// PromoPoolService hands out pre-generated discount codes, one user per code.
type PromoPoolService struct {
	DB *gorm.DB
}

func NewPromoPoolService(db *gorm.DB) *PromoPoolService {
	return &PromoPoolService{DB: db}
}

// TakeAndGrant issues one unassigned code of the tier to the user. The grant
// insert conflicts on the global unique code index, so two concurrent takes of
// the last code resolve to exactly one winner; the loser moves to the next
// candidate or reports exhaustion.
func (s *PromoPoolService) TakeAndGrant(db *gorm.DB, userID int64, discountPercent int, source string) (string, error) {
	var codes []string
	sub := db.Session(&gorm.Session{NewDB: true}).Model(&models.UserPromocode{}).Select("code")
	err := db.Model(&models.PromoCode{}).
		Where("discount_percent = ? AND is_active = ? AND expires_at > ?",
			discountPercent, true, time.Now().UTC()).
		Where("code NOT IN (?)", sub).
		Order("code").
		Limit(promoTakeBatch).
		Pluck("code", &codes).Error
	if err != nil {
		return "", err
	}

	for _, code := range codes {
		granted, err := grantPromo(db, userID, code, source)
		if err != nil {
			return "", err
		}
		if granted {
			return code, nil
		}
	}
	return "", ErrPromoPoolExhausted
}

// Grant records a (user, code) association. Repeating the same pair is a
// silent no-op; granting a code that already belongs to someone else is an
// error, because pool codes are single-use.
func (s *PromoPoolService) Grant(userID int64, code, source string) error {
	granted, err := grantPromo(s.DB, userID, code, source)
	if err != nil {
		return err
	}
	if !granted {
		var existing models.UserPromocode
		if err := s.DB.Where("code = ?", code).First(&existing).Error; err != nil {
			return err
		}
		if existing.UserID != userID {
			return fmt.Errorf("promo code %s already issued to user %d", code, existing.UserID)
		}
	}
	return nil
}

// grantPromo reports true when this call created the grant. False means the
// insert hit a conflict: either the same pair already exists (idempotent
// re-grant) or the code belongs to another user.
func grantPromo(db *gorm.DB, userID int64, code, source string) (bool, error) {
	grant := models.UserPromocode{
		UserID:     userID,
		Code:       code,
		AssignedAt: time.Now().UTC(),
		Source:     source,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var existing models.UserPromocode
	if err := db.Where("code = ?", code).First(&existing).Error; err != nil {
		return false, err
	}
	return existing.UserID == userID, nil
}

// UserPromoView is a granted code joined with its pool entry
type UserPromoView struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount"`
	ExpiresAt       time.Time  `json:"expires_at"`
	AssignedAt      time.Time  `json:"assigned_at"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	Source          string     `json:"source"`
}

// ListForUser returns the user's active, unexpired codes, newest first.
func (s *PromoPoolService) ListForUser(userID int64) ([]UserPromoView, error) {
	var views []UserPromoView
	err := s.DB.Model(&models.UserPromocode{}).
		Select("user_promocodes.code, promo_codes.discount_percent, promo_codes.expires_at, user_promocodes.assigned_at, user_promocodes.used_at, user_promocodes.source").
		Joins("JOIN promo_codes ON promo_codes.code = user_promocodes.code").
		Where("user_promocodes.user_id = ?", userID).
		Where("promo_codes.is_active = ? AND promo_codes.expires_at > ?", true, time.Now().UTC()).
		Order("user_promocodes.assigned_at DESC").
		Scan(&views).Error
	return views, err
}

// DiscountForUserCode validates that the code belongs to the user and is still
// usable, returning its discount percent.
func (s *PromoPoolService) DiscountForUserCode(userID int64, code string) (int, error) {
	var grant models.UserPromocode
	if err := s.DB.Where("user_id = ? AND code = ?", userID, code).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("promo code %s not issued to user %d", code, userID)
		}
		return 0, err
	}
	if grant.UsedAt != nil {
		return 0, fmt.Errorf("promo code %s already used", code)
	}

	var promo models.PromoCode
	if err := s.DB.Where("code = ?", code).First(&promo).Error; err != nil {
		return 0, err
	}
	if !promo.IsActive || !promo.ExpiresAt.After(time.Now().UTC()) {
		return 0, fmt.Errorf("promo code %s is not active", code)
	}
	return promo.DiscountPercent, nil
}

// MarkUsed stamps used_at once; repeated calls keep the first timestamp.
func (s *PromoPoolService) MarkUsed(db *gorm.DB, userID int64, code string) error {
	return db.Model(&models.UserPromocode{}).
		Where("user_id = ? AND code = ? AND used_at IS NULL", userID, code).
		Update("used_at", time.Now().UTC()).Error
}

// CountAvailable reports how many unassigned codes remain in a tier. The
// maintenance scheduler uses it to warn operators before a pool runs dry.
func (s *PromoPoolService) CountAvailable(discountPercent int) (int64, error) {
	var count int64
	sub := s.DB.Session(&gorm.Session{NewDB: true}).Model(&models.UserPromocode{}).Select("code")
	err := s.DB.Model(&models.PromoCode{}).
		Where("discount_percent = ? AND is_active = ? AND expires_at > ?",
			discountPercent, true, time.Now().UTC()).
		Where("code NOT IN (?)", sub).
		Count(&count).Error
	return count, err
}
