package models

import "time"

// Task display states derived from a UserTask row
const (
	TaskStatusPending      = "pending"
	TaskStatusInProgress   = "in_progress"
	TaskStatusReadyToClaim = "ready_to_claim"
	TaskStatusCompleted    = "completed"
)

// UserTask is the per-(user, task) progress row. Created lazily on first
// reference, never deleted. reward_claimed flips false→true exactly once;
// the conditional update on that column is what makes payouts single-shot.
type UserTask struct {
	UserID          int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TaskCode        string    `gorm:"primaryKey;size:32" json:"task_code"`
	ProgressCurrent int64     `gorm:"not null;default:0" json:"progress_current"`
	ProgressTarget  int64     `gorm:"not null" json:"progress_target"`
	RewardClaimed   bool      `gorm:"not null;default:false" json:"reward_claimed"`
	LastUpdated     time.Time `json:"last_updated" gorm:"autoUpdateTime"`
}

// Status maps the row onto the client-facing state machine. The store never
// clamps progress, so current may exceed target.
func (t UserTask) Status() string {
	switch {
	case t.RewardClaimed:
		return TaskStatusCompleted
	case t.ProgressCurrent >= t.ProgressTarget:
		return TaskStatusReadyToClaim
	case t.ProgressCurrent > 0:
		return TaskStatusInProgress
	default:
		return TaskStatusPending
	}
}
