package services

import (
	"errors"
	"fmt"
	"log"

	"tarot-miniapp-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUnknownTask is returned by explicit claims on codes missing from the
	// catalog. Increments treat unknown codes as silent no-ops instead.
	ErrUnknownTask = errors.New("unknown task code")

	// ErrTaskNotReady and ErrTaskAlreadyClaimed are the two reasons a claim is
	// rejected; handlers surface them separately so the client can render the
	// claim button state correctly.
	ErrTaskNotReady       = errors.New("task target not reached")
	ErrTaskAlreadyClaimed = errors.New("task reward already claimed")
)

// usage tasks advanced by every tracked reading request
var usageTaskCodes = []string{"D_REQ_DAILY", "USE_1", "USE_2", "USE_3", "USE_4", "USE_5"}

// TaskService is the reward engine: it advances per-user task progress,
// detects completion, pays out reward bundles exactly once, and keeps the
// level tasks aligned with the XP total.
type TaskService struct {
	DB     *gorm.DB
	Promos *PromoPoolService
}

func NewTaskService(db *gorm.DB, promos *PromoPoolService) *TaskService {
	return &TaskService{DB: db, Promos: promos}
}

// EnsureTaskRecord creates the (user, task) row if it does not exist yet.
// Safe under concurrency: the insert conflicts on the composite key and
// backs off.
func (s *TaskService) EnsureTaskRecord(userID int64, code string) error {
	def, ok := models.TaskByCode(code)
	if !ok {
		return nil
	}
	rec := models.UserTask{
		UserID:          userID,
		TaskCode:        code,
		ProgressCurrent: 0,
		ProgressTarget:  def.Target,
	}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// IncrementProgress adds delta to the task's progress and pays out the reward
// when the increment crosses the target. Unknown codes are ignored — call
// sites probe codes defensively.
func (s *TaskService) IncrementProgress(userID int64, code string, delta int64) error {
	def, ok := models.TaskByCode(code)
	if !ok {
		return nil
	}
	if delta < 0 {
		return fmt.Errorf("negative progress delta %d for task %s", delta, code)
	}
	if err := s.EnsureTaskRecord(userID, code); err != nil {
		return err
	}

	snap, err := s.advanceProgress(userID, def, delta)
	if err != nil {
		return err
	}
	if !snap.RewardClaimed && snap.ProgressCurrent >= snap.ProgressTarget {
		paid, err := s.applyReward(userID, def)
		if err != nil {
			return err
		}
		if paid {
			return s.afterPayout(userID, def)
		}
	}
	return nil
}

// SetProgress rewrites the task's progress to an absolute value and pays out
// when the new value reaches the target. Activity syncs use it: the reported
// state (subscription flags, streak length) is authoritative, so repeating a
// report is idempotent where an increment would double-count.
func (s *TaskService) SetProgress(userID int64, code string, value int64) error {
	def, ok := models.TaskByCode(code)
	if !ok {
		return nil
	}
	if value < 0 {
		return fmt.Errorf("negative progress value %d for task %s", value, code)
	}
	if err := s.EnsureTaskRecord(userID, code); err != nil {
		return err
	}

	snap, err := s.setTaskProgress(userID, def, value)
	if err != nil {
		return err
	}
	if !snap.RewardClaimed && snap.ProgressCurrent >= snap.ProgressTarget {
		paid, err := s.applyReward(userID, def)
		if err != nil {
			return err
		}
		if paid {
			return s.afterPayout(userID, def)
		}
	}
	return nil
}

// TrackUsage advances every usage-counter task by one. Called once per
// generated reading.
func (s *TaskService) TrackUsage(userID int64) error {
	for _, code := range usageTaskCodes {
		if err := s.IncrementProgress(userID, code, 1); err != nil {
			return err
		}
	}
	return nil
}

// ClaimReward is the explicit user-initiated claim. With auto-payout on
// increment it mostly reports why the button should be disabled.
func (s *TaskService) ClaimReward(userID int64, code string) (newXP int64, newBalance int64, err error) {
	def, ok := models.TaskByCode(code)
	if !ok {
		return 0, 0, ErrUnknownTask
	}
	if err := s.EnsureTaskRecord(userID, code); err != nil {
		return 0, 0, err
	}

	var rec models.UserTask
	if err := s.DB.Where("user_id = ? AND task_code = ?", userID, code).Take(&rec).Error; err != nil {
		return 0, 0, err
	}
	switch {
	case rec.RewardClaimed:
		return 0, 0, ErrTaskAlreadyClaimed
	case rec.ProgressCurrent < rec.ProgressTarget:
		return 0, 0, ErrTaskNotReady
	}

	paid, err := s.applyReward(userID, def)
	if err != nil {
		return 0, 0, err
	}
	if !paid {
		// a concurrent increment won the payout between our read and the CAS
		return 0, 0, ErrTaskAlreadyClaimed
	}
	if err := s.afterPayout(userID, def); err != nil {
		return 0, 0, err
	}

	if newXP, err = getXP(s.DB, userID); err != nil {
		return 0, 0, err
	}
	if newBalance, err = getMessagesBalance(s.DB, userID); err != nil {
		return 0, 0, err
	}
	return newXP, newBalance, nil
}

// AddXP credits experience outside of task payouts (purchase bonuses, admin
// grants) and keeps the level tasks in step.
func (s *TaskService) AddXP(userID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := creditXP(s.DB, userID, amount); err != nil {
		return err
	}
	return s.SyncLevelTasks(userID)
}

// TaskView is one row of the client task list
type TaskView struct {
	Code            string `json:"code"`
	Status          string `json:"status"`
	ProgressCurrent int64  `json:"progress_current"`
	ProgressTarget  int64  `json:"progress_target"`
	RewardClaimed   bool   `json:"reward_claimed"`
	XP              int64  `json:"xp"`
	Messages        int64  `json:"messages"`
	PromoPercent    int    `json:"promo_percent,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description"`
}

// TasksByCategory materializes the category's rows for the user and returns
// them in catalog order with their reward summary.
func (s *TaskService) TasksByCategory(userID int64, category models.TaskCategory) ([]TaskView, error) {
	defs := models.TasksInCategory(category)
	for _, def := range defs {
		if err := s.EnsureTaskRecord(userID, def.Code); err != nil {
			return nil, err
		}
	}

	var rows []models.UserTask
	codes := make([]string, len(defs))
	for i, def := range defs {
		codes[i] = def.Code
	}
	if err := s.DB.Where("user_id = ? AND task_code IN ?", userID, codes).Find(&rows).Error; err != nil {
		return nil, err
	}
	byCode := make(map[string]models.UserTask, len(rows))
	for _, row := range rows {
		byCode[row.TaskCode] = row
	}

	views := make([]TaskView, 0, len(defs))
	for _, def := range defs {
		row := byCode[def.Code]
		xp, messages, promos := def.RewardTotals()
		view := TaskView{
			Code:            def.Code,
			Status:          row.Status(),
			ProgressCurrent: row.ProgressCurrent,
			ProgressTarget:  row.ProgressTarget,
			RewardClaimed:   row.RewardClaimed,
			XP:              xp,
			Messages:        messages,
			Title:           def.Title,
			Description:     def.Description,
		}
		if len(promos) > 0 {
			view.PromoPercent = promos[0]
		}
		views = append(views, view)
	}
	return views, nil
}

// CountCompleted reports how many tasks the user has claimed, for the profile
// response.
func (s *TaskService) CountCompleted(userID int64) (int64, error) {
	var count int64
	err := s.DB.Model(&models.UserTask{}).
		Where("user_id = ? AND reward_claimed = ?", userID, true).
		Count(&count).Error
	return count, err
}

// advanceProgress is the atomic increment-and-fetch: the in-database add keeps
// concurrent increments from losing updates, and the read inside the same
// transaction returns one consistent snapshot. The target is refreshed from
// the catalog on every touch.
func (s *TaskService) advanceProgress(userID int64, def models.TaskDefinition, delta int64) (models.UserTask, error) {
	var snap models.UserTask
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserTask{}).
			Where("user_id = ? AND task_code = ?", userID, def.Code).
			Updates(map[string]interface{}{
				"progress_current": gorm.Expr("progress_current + ?", delta),
				"progress_target":  def.Target,
			})
		if res.Error != nil {
			return res.Error
		}
		return tx.Where("user_id = ? AND task_code = ?", userID, def.Code).Take(&snap).Error
	})
	return snap, err
}

// setTaskProgress rewrites progress to an absolute value. Level Sync uses it
// to make level-task progress equal the XP total instead of an accumulated
// counter.
func (s *TaskService) setTaskProgress(userID int64, def models.TaskDefinition, value int64) (models.UserTask, error) {
	var snap models.UserTask
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserTask{}).
			Where("user_id = ? AND task_code = ?", userID, def.Code).
			Updates(map[string]interface{}{
				"progress_current": value,
				"progress_target":  def.Target,
			})
		if res.Error != nil {
			return res.Error
		}
		return tx.Where("user_id = ? AND task_code = ?", userID, def.Code).Take(&snap).Error
	})
	return snap, err
}

// applyReward pays out the bundle at most once. The conditional flip of
// reward_claimed picks a single winner under concurrent completion, and the
// XP/messages/promo credits share its transaction, so a payout either lands
// whole or not at all. Returns whether this call was the one that paid.
func (s *TaskService) applyReward(userID int64, def models.TaskDefinition) (bool, error) {
	xpDelta, msgDelta, promoPercents := def.RewardTotals()

	paid := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserTask{}).
			Where("user_id = ? AND task_code = ? AND reward_claimed = ?", userID, def.Code, false).
			Update("reward_claimed", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // another caller already claimed it
		}
		paid = true

		if err := creditXP(tx, userID, xpDelta); err != nil {
			return err
		}
		if err := creditMessages(tx, userID, msgDelta); err != nil {
			return err
		}
		for _, percent := range promoPercents {
			_, err := s.Promos.TakeAndGrant(tx, userID, percent, "task_"+def.Code)
			if errors.Is(err, ErrPromoPoolExhausted) {
				log.Printf("⚠️ [Tasks] promo pool %d%% exhausted — task %s paid without a code (user %d)",
					percent, def.Code, userID)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return paid, nil
}

// afterPayout runs Level Sync when the bundle carried XP. It happens outside
// the payout transaction: the payout itself must not depend on what further
// level claims it causes.
func (s *TaskService) afterPayout(userID int64, def models.TaskDefinition) error {
	xpDelta, _, _ := def.RewardTotals()
	if xpDelta <= 0 {
		return nil
	}
	return s.SyncLevelTasks(userID)
}
