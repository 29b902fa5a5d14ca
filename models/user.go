package models

import "time"

// User mirrors the Telegram account known to the bot. The row is created by the
// auth layer (or the user sync worker) before any balance or task operation runs.
type User struct {
	UserID          int64   `gorm:"primaryKey;autoIncrement:false" json:"user_id"` // Telegram user id
	Username        *string `json:"username,omitempty"`
	FirstName       *string `json:"first_name,omitempty"`
	ReferrerID      *int64  `gorm:"index" json:"referrer_id,omitempty"`
	RefCode         *string `gorm:"uniqueIndex;size:16" json:"ref_code,omitempty"`
	IsBanned        bool    `gorm:"not null;default:false" json:"is_banned"`
	MessagesBalance int64   `gorm:"not null;default:0" json:"messages_balance"` // spendable "messages" currency, never negative
	PhotoURL        *string `gorm:"type:text" json:"photo_url,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// UserXP keeps experience separate from the spendable balance.
// XP only ever grows (reward payouts, purchase bonuses); there is no spend path.
type UserXP struct {
	UserID int64 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	XP     int64 `gorm:"not null;default:0" json:"xp"`
}

func (UserXP) TableName() string {
	return "user_xp"
}
