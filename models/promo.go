package models

import "time"

// PromoPoolPercents are the discount tiers with a backing pool of codes.
// Reward bundles may reference other percentages (e.g. 3%); those pay out
// without a code until a pool is imported for the tier.
var PromoPoolPercents = []int{5, 10, 15, 20, 25, 30}

// PromoCode is one pre-generated discount code. Pool membership is the set of
// rows sharing a discount_percent; a code leaves the pool by appearing in
// user_promocodes.
type PromoCode struct {
	Code            string    `gorm:"primaryKey;size:64" json:"code"`
	DiscountPercent int       `gorm:"not null;index" json:"discount_percent"`
	ExpiresAt       time.Time `gorm:"not null" json:"expires_at"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	Description     *string   `gorm:"type:text" json:"description,omitempty"`
}

// PromoCodeDefaultExpiry marks codes without a real expiration date
var PromoCodeDefaultExpiry = time.Date(2099, time.December, 31, 23, 59, 59, 0, time.UTC)

// UserPromocode records a code issued to a user. The composite key makes
// re-granting the same pair an upsert no-op; the extra unique index on code
// enforces that a pool code is ever handed to at most one user.
type UserPromocode struct {
	UserID     int64      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Code       string     `gorm:"primaryKey;size:64;uniqueIndex" json:"code"`
	AssignedAt time.Time  `gorm:"not null" json:"assigned_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	Source     string     `gorm:"size:64" json:"source"` // e.g. task_D_3, import, admin
}
