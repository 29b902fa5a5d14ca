package services

import (
	"log"

	"tarot-miniapp-backend/models"
)

// SyncLevelTasks recomputes every level task from the authoritative XP total.
// Progress is rewritten to equal the XP (not accumulated), so the derived
// state cannot drift from the balance. A claim can itself grant XP, which may
// push the total over the next threshold; instead of recursing, the sync
// re-runs until a pass claims nothing. Each level task is claimable once, so
// the pass count is bounded by the number of level tasks.
func (s *TaskService) SyncLevelTasks(userID int64) error {
	maxPasses := len(models.LevelTaskCodes) + 1

	for pass := 0; pass < maxPasses; pass++ {
		xp, err := getXP(s.DB, userID)
		if err != nil {
			return err
		}

		claimedAny := false
		for _, code := range models.LevelTaskCodes {
			def, ok := models.TaskByCode(code)
			if !ok {
				log.Printf("⚠️ [LevelSync] level task %s missing from catalog", code)
				continue
			}
			if err := s.EnsureTaskRecord(userID, code); err != nil {
				return err
			}
			snap, err := s.setTaskProgress(userID, def, xp)
			if err != nil {
				return err
			}
			if snap.RewardClaimed || snap.ProgressCurrent < snap.ProgressTarget {
				continue
			}
			paid, err := s.applyReward(userID, def)
			if err != nil {
				return err
			}
			if paid {
				claimedAny = true
				log.Printf("🎉 [LevelSync] user %d reached %s (xp %d ≥ %d)", userID, def.Code, xp, def.Target)
			}
		}

		if !claimedAny {
			return nil
		}
	}
	return nil
}
