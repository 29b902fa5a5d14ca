package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// referral tasks advanced once per joined friend
var referralTaskCodes = []string{"REF_1", "REF_2", "REF_3", "REF_4", "REF_5"}

// ReferralService manages invite codes, friend registration and the referral
// task progress of the referrer.
type ReferralService struct {
	DB          *gorm.DB
	Tasks       *TaskService
	BotUsername string
}

func NewReferralService(db *gorm.DB, tasks *TaskService, botUsername string) *ReferralService {
	return &ReferralService{DB: db, Tasks: tasks, BotUsername: botUsername}
}

// GetOrCreateRefCode returns the user's invite code, generating one on first
// use. The unique index on ref_code resolves generator collisions by retry.
func (s *ReferralService) GetOrCreateRefCode(userID int64) (string, error) {
	var user models.User
	if err := s.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return "", err
	}
	if user.RefCode != nil && *user.RefCode != "" {
		return *user.RefCode, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		code := newRefCode()
		res := s.DB.Model(&models.User{}).
			Where("user_id = ? AND ref_code IS NULL", userID).
			Update("ref_code", code)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				continue
			}
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			// another request generated the code first — re-read it
			if err := s.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
				return "", err
			}
			if user.RefCode != nil {
				return *user.RefCode, nil
			}
			continue
		}
		return code, nil
	}
	return "", fmt.Errorf("could not allocate a unique ref code for user %d", userID)
}

// newRefCode is a var so tests can force generator collisions.
var newRefCode = func() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:8]
}

// RegisterReferral records that friendID joined via refCode and advances the
// referrer's REF_n tasks. A friend counts once ever: the unique index on
// friend_user_id makes repeated registrations no-ops, and self-referrals are
// ignored.
func (s *ReferralService) RegisterReferral(refCode string, friendID int64, friendDisplayName string) error {
	var referrer models.User
	if err := s.DB.Where("ref_code = ?", refCode).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown referral code %s", refCode)
		}
		return err
	}
	if referrer.UserID == friendID {
		return nil
	}

	referral := models.Referral{
		ID:                uuid.NewString(),
		ReferrerID:        referrer.UserID,
		FriendUserID:      friendID,
		FriendDisplayName: friendDisplayName,
		JoinedAt:          time.Now().UTC(),
	}
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&referral)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // already registered, nothing more to pay
	}

	if err := s.DB.Model(&models.User{}).
		Where("user_id = ? AND referrer_id IS NULL", friendID).
		Update("referrer_id", referrer.UserID).Error; err != nil {
		return err
	}

	for _, code := range referralTaskCodes {
		if err := s.Tasks.IncrementProgress(referrer.UserID, code, 1); err != nil {
			return err
		}
	}
	return nil
}

// ReferralFriend is one joined friend in the info response
type ReferralFriend struct {
	Name         string    `json:"name"`
	JoinedAt     time.Time `json:"joined_at"`
	BonusCredits int64     `json:"bonus_credits"`
	Status       string    `json:"status"`
}

// ReferralInfo is the /referrals/info payload
type ReferralInfo struct {
	ReferralLink string           `json:"referral_link"`
	Friends      []ReferralFriend `json:"friends"`
}

// Info builds the referral link and the list of joined friends, newest first.
func (s *ReferralService) Info(userID int64) (*ReferralInfo, error) {
	refCode, err := s.GetOrCreateRefCode(userID)
	if err != nil {
		return nil, err
	}

	var referrals []models.Referral
	if err := s.DB.Where("referrer_id = ?", userID).
		Order("joined_at DESC").
		Find(&referrals).Error; err != nil {
		return nil, err
	}

	friends := make([]ReferralFriend, 0, len(referrals))
	for _, r := range referrals {
		name := r.FriendDisplayName
		if name == "" {
			name = "Friend"
		}
		friends = append(friends, ReferralFriend{
			Name:         name,
			JoinedAt:     r.JoinedAt,
			BonusCredits: r.BonusCredits,
			Status:       "joined",
		})
	}

	return &ReferralInfo{
		ReferralLink: fmt.Sprintf("https://t.me/%s?start=%s", s.BotUsername, refCode),
		Friends:      friends,
	}, nil
}
