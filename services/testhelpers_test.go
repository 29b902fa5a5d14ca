package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"tarot-miniapp-backend/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory database per test. cache=shared keeps the
// database alive across the connections in GORM's pool; the per-test name
// keeps tests isolated from each other.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // match production: duplicate keys surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// one connection serializes statements, so concurrent tests race at the
	// application level without tripping sqlite's write locking
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserXP{},
		&models.UserTask{},
		&models.PromoCode{},
		&models.UserPromocode{},
		&models.Referral{},
		&models.MessagePurchase{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestTaskService(t *testing.T) (*TaskService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	promos := NewPromoPoolService(db)
	return NewTaskService(db, promos), db
}

func seedUser(t *testing.T, db *gorm.DB, userID int64) {
	t.Helper()
	user := models.User{UserID: userID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %d: %v", userID, err)
	}
}

func seedPromoCodes(t *testing.T, db *gorm.DB, percent int, codes ...string) {
	t.Helper()
	for _, code := range codes {
		promo := models.PromoCode{
			Code:            code,
			DiscountPercent: percent,
			ExpiresAt:       models.PromoCodeDefaultExpiry,
			IsActive:        true,
		}
		if err := db.Create(&promo).Error; err != nil {
			t.Fatalf("seed promo %s: %v", code, err)
		}
	}
}

func taskRow(t *testing.T, db *gorm.DB, userID int64, code string) models.UserTask {
	t.Helper()
	var row models.UserTask
	if err := db.Where("user_id = ? AND task_code = ?", userID, code).Take(&row).Error; err != nil {
		t.Fatalf("read task row %s for user %d: %v", code, userID, err)
	}
	return row
}

func xpOf(t *testing.T, db *gorm.DB, userID int64) int64 {
	t.Helper()
	xp, err := getXP(db, userID)
	if err != nil {
		t.Fatalf("read xp for user %d: %v", userID, err)
	}
	return xp
}

func balanceOf(t *testing.T, db *gorm.DB, userID int64) int64 {
	t.Helper()
	balance, err := getMessagesBalance(db, userID)
	if err != nil {
		t.Fatalf("read balance for user %d: %v", userID, err)
	}
	return balance
}

func promoGrantsOf(t *testing.T, db *gorm.DB, userID int64) []models.UserPromocode {
	t.Helper()
	var grants []models.UserPromocode
	if err := db.Where("user_id = ?", userID).Order("assigned_at").Find(&grants).Error; err != nil {
		t.Fatalf("read promo grants for user %d: %v", userID, err)
	}
	return grants
}

func backdatePurchase(t *testing.T, db *gorm.DB, purchaseID string, age time.Duration) {
	t.Helper()
	createdAt := time.Now().UTC().Add(-age)
	if err := db.Model(&models.MessagePurchase{}).
		Where("id = ?", purchaseID).
		Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("backdate purchase %s: %v", purchaseID, err)
	}
}
