package models

import "time"

// Referral links a joined friend to their referrer. friend_user_id is unique:
// a user can be referred at most once, which makes registration idempotent.
type Referral struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID        int64     `gorm:"index;not null" json:"referrer_id"`
	FriendUserID      int64     `gorm:"uniqueIndex;not null" json:"friend_user_id"`
	FriendDisplayName string    `json:"friend_display_name"`
	JoinedAt          time.Time `gorm:"not null" json:"joined_at"`
	BonusCredits      int64     `gorm:"not null;default:0" json:"bonus_credits"`
}
