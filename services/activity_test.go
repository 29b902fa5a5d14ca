package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tarot-miniapp-backend/models"
)

func newTestActivityService(t *testing.T, botStatus SubscriptionStatus) (*ActivityService, *TaskService, func()) {
	t.Helper()
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Service-Token") != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"channel_subscribed":%t,"notifications_enabled":%t}`,
			botStatus.ChannelSubscribed, botStatus.NotificationsEnabled)
	}))

	bot := NewBotServiceClient(srv.URL, "test-token")
	return NewActivityService(tasks, bot), tasks, srv.Close
}

func TestCompleteActivityPaysOnce(t *testing.T) {
	svc, tasks, closeSrv := newTestActivityService(t, SubscriptionStatus{})
	defer closeSrv()
	db := tasks.DB

	if err := svc.CompleteActivity(1, "D_3"); err != nil {
		t.Fatalf("first report: %v", err)
	}
	row := taskRow(t, db, 1, "D_3")
	if !row.RewardClaimed || row.ProgressCurrent != 1 {
		t.Fatalf("after report: claimed=%v progress=%d", row.RewardClaimed, row.ProgressCurrent)
	}
	if xp := xpOf(t, db, 1); xp != 30 {
		t.Fatalf("xp = %d, want 30", xp)
	}
	if bal := balanceOf(t, db, 1); bal != 5 {
		t.Fatalf("balance = %d, want 5", bal)
	}

	// the reported state is authoritative, so repeating it must not pay again
	if err := svc.CompleteActivity(1, "D_3"); err != nil {
		t.Fatalf("repeat report: %v", err)
	}
	if xp := xpOf(t, db, 1); xp != 30 {
		t.Fatalf("xp after repeat = %d, want 30", xp)
	}
	if bal := balanceOf(t, db, 1); bal != 5 {
		t.Fatalf("balance after repeat = %d, want 5", bal)
	}
}

func TestCompleteActivityRejectsOtherCategories(t *testing.T) {
	svc, _, closeSrv := newTestActivityService(t, SubscriptionStatus{})
	defer closeSrv()

	if err := svc.CompleteActivity(1, "USE_1"); err == nil {
		t.Fatal("usage task accepted as an activity report")
	}
	err := svc.CompleteActivity(1, "NO_SUCH_TASK")
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("unknown code error = %v, want ErrUnknownTask", err)
	}
}

func TestCompleteSubscriptionTasks(t *testing.T) {
	svc, tasks, closeSrv := newTestActivityService(t, SubscriptionStatus{
		ChannelSubscribed:    true,
		NotificationsEnabled: true,
	})
	defer closeSrv()
	db := tasks.DB

	if err := svc.CompleteSubscriptionTasks(1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !taskRow(t, db, 1, "D_1").RewardClaimed {
		t.Fatal("channel subscription task not claimed")
	}
	if !taskRow(t, db, 1, "D_2").RewardClaimed {
		t.Fatal("notification task not claimed")
	}
	if xp := xpOf(t, db, 1); xp != 40 {
		t.Fatalf("xp = %d, want 10+30", xp)
	}
	if bal := balanceOf(t, db, 1); bal != 11 {
		t.Fatalf("balance = %d, want 1+10", bal)
	}
}

func TestCompleteSubscriptionTasksSkipsUnsetFlags(t *testing.T) {
	svc, tasks, closeSrv := newTestActivityService(t, SubscriptionStatus{
		ChannelSubscribed: true,
	})
	defer closeSrv()
	db := tasks.DB

	if err := svc.CompleteSubscriptionTasks(1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !taskRow(t, db, 1, "D_1").RewardClaimed {
		t.Fatal("channel subscription task not claimed")
	}
	var claimed int64
	if err := db.Model(&models.UserTask{}).
		Where("user_id = ? AND task_code = ? AND reward_claimed", 1, "D_2").
		Count(&claimed).Error; err != nil {
		t.Fatalf("count notification claims: %v", err)
	}
	if claimed != 0 {
		t.Fatal("notification task claimed without the flag")
	}
}

func TestCompleteSubscriptionTasksSurfacesBotErrors(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewActivityService(tasks, NewBotServiceClient(srv.URL, "test-token"))
	if err := svc.CompleteSubscriptionTasks(1); err == nil {
		t.Fatal("bot service failure did not surface")
	}
	var rows int64
	if err := db.Model(&models.UserTask{}).Where("user_id = ?", 1).Count(&rows).Error; err != nil {
		t.Fatalf("count task rows: %v", err)
	}
	if rows != 0 {
		t.Fatalf("found %d task rows despite bot failure", rows)
	}
}
