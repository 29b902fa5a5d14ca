package services

import (
	"fmt"
	"log"

	"tarot-miniapp-backend/models"
)

// ActivityService keeps the activity tab's one-shot tasks in step with state
// reported from outside the app: channel subscription and notification flags
// come from the bot service, the rest (daily tips, profile, review) are
// reported by the bot or gateway when the user performs the action.
type ActivityService struct {
	Tasks *TaskService
	Bot   *BotServiceClient
}

func NewActivityService(tasks *TaskService, bot *BotServiceClient) *ActivityService {
	return &ActivityService{Tasks: tasks, Bot: bot}
}

// CompleteSubscriptionTasks re-checks the bot-side flags and completes D_1
// and D_2 for every flag that is set. Runs on each profile load; completing
// an already-claimed task is a no-op, and a flag turning off never takes a
// claimed reward back.
func (s *ActivityService) CompleteSubscriptionTasks(userID int64) error {
	status, err := s.Bot.GetSubscriptionStatus(userID)
	if err != nil {
		return fmt.Errorf("subscription check for user %d: %w", userID, err)
	}

	if status.ChannelSubscribed {
		if err := s.CompleteActivity(userID, "D_1"); err != nil {
			return err
		}
	}
	if status.NotificationsEnabled {
		if err := s.CompleteActivity(userID, "D_2"); err != nil {
			return err
		}
	}
	return nil
}

// CompleteActivity marks a one-shot activity task as done by setting its
// progress to the target. Only activity-category codes are accepted; repeated
// reports are idempotent.
func (s *ActivityService) CompleteActivity(userID int64, code string) error {
	def, ok := models.TaskByCode(code)
	if !ok {
		return fmt.Errorf("unknown activity task %s: %w", code, ErrUnknownTask)
	}
	if def.Category != models.CategoryActivity {
		return fmt.Errorf("task %s is not an activity task", code)
	}
	if err := s.Tasks.SetProgress(userID, code, def.Target); err != nil {
		return err
	}
	log.Printf("[Activity] task %s reported done for user %d", code, userID)
	return nil
}
