package services

import (
	"errors"
	"strings"
	"testing"

	"tarot-miniapp-backend/models"

	"gorm.io/gorm"
)

func newTestReferralService(t *testing.T) (*ReferralService, *gorm.DB) {
	t.Helper()
	tasks, db := newTestTaskService(t)
	return NewReferralService(db, tasks, "tarot_test_bot"), db
}

func TestRefCodeIsStable(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 1)

	first, err := svc.GetOrCreateRefCode(1)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first) != 8 {
		t.Fatalf("ref code %q, want 8 characters", first)
	}
	second, err := svc.GetOrCreateRefCode(1)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Fatalf("ref code changed between calls: %s != %s", first, second)
	}
}

func TestRefCodeCollisionRetries(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)

	taken, err := svc.GetOrCreateRefCode(1)
	if err != nil {
		t.Fatalf("ref code for user 1: %v", err)
	}

	// force the generator to collide once before producing a fresh code
	origNewRefCode := newRefCode
	defer func() { newRefCode = origNewRefCode }()
	calls := 0
	newRefCode = func() string {
		calls++
		if calls == 1 {
			return taken
		}
		return origNewRefCode()
	}

	code, err := svc.GetOrCreateRefCode(2)
	if err != nil {
		t.Fatalf("ref code for user 2 after collision: %v", err)
	}
	if code == taken {
		t.Fatalf("user 2 got user 1's code %s", code)
	}
	if calls < 2 {
		t.Fatalf("generator called %d time(s), want a retry after the collision", calls)
	}
}

func TestDuplicateKeyErrorsAreTranslated(t *testing.T) {
	_, db := newTestReferralService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)

	if err := db.Model(&models.User{}).Where("user_id = ?", 1).
		Update("ref_code", "SAMECODE").Error; err != nil {
		t.Fatalf("set ref code: %v", err)
	}
	err := db.Model(&models.User{}).Where("user_id = ?", 2).
		Update("ref_code", "SAMECODE").Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate ref code error = %v, want gorm.ErrDuplicatedKey", err)
	}
}

func TestRegisterReferralPaysReferralTasks(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)

	code, err := svc.GetOrCreateRefCode(1)
	if err != nil {
		t.Fatalf("ref code: %v", err)
	}

	if err := svc.RegisterReferral(code, 2, "Alex"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// REF_1 (target 1) pays 70 XP and 10 messages to the referrer
	if got := xpOf(t, db, 1); got != 70 {
		t.Fatalf("referrer xp = %d, want 70", got)
	}
	if got := balanceOf(t, db, 1); got != 10 {
		t.Fatalf("referrer balance = %d, want 10", got)
	}
	if row := taskRow(t, db, 1, "REF_2"); row.ProgressCurrent != 1 || row.RewardClaimed {
		t.Fatalf("REF_2 = %d/%v, want 1/unclaimed", row.ProgressCurrent, row.RewardClaimed)
	}

	// the friend is now linked to the referrer
	var friend models.User
	if err := db.Where("user_id = ?", 2).Take(&friend).Error; err != nil {
		t.Fatalf("reload friend: %v", err)
	}
	if friend.ReferrerID == nil || *friend.ReferrerID != 1 {
		t.Fatalf("friend referrer = %v, want 1", friend.ReferrerID)
	}

	// the friend gets nothing: referral rewards go to the inviter only
	if got := xpOf(t, db, 2); got != 0 {
		t.Fatalf("friend xp = %d, want 0", got)
	}
}

func TestRegisterReferralCountsAFriendOnce(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)

	code, _ := svc.GetOrCreateRefCode(1)
	if err := svc.RegisterReferral(code, 2, "Alex"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := svc.RegisterReferral(code, 2, "Alex"); err != nil {
		t.Fatalf("repeat register: %v", err)
	}

	if row := taskRow(t, db, 1, "REF_1"); row.ProgressCurrent != 1 {
		t.Fatalf("REF_1 progress = %d, want 1 (friend counted once)", row.ProgressCurrent)
	}
	if got := xpOf(t, db, 1); got != 70 {
		t.Fatalf("xp = %d, want 70 (no double pay)", got)
	}
}

func TestRegisterReferralSecondFriendReachesNextTier(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)
	seedUser(t, db, 3)

	code, _ := svc.GetOrCreateRefCode(1)
	if err := svc.RegisterReferral(code, 2, "Alex"); err != nil {
		t.Fatalf("register friend 2: %v", err)
	}
	if err := svc.RegisterReferral(code, 3, "Sam"); err != nil {
		t.Fatalf("register friend 3: %v", err)
	}

	if row := taskRow(t, db, 1, "REF_2"); !row.RewardClaimed {
		t.Fatal("REF_2 should be claimed after the second friend")
	}
	if row := taskRow(t, db, 1, "REF_3"); row.RewardClaimed {
		t.Fatal("REF_3 must not be claimed after two friends")
	}
	// 70 (REF_1) + 120 (REF_2) + 20 (the 100 XP milestone)
	if got := xpOf(t, db, 1); got != 210 {
		t.Fatalf("xp = %d, want 210", got)
	}
}

func TestSelfReferralIsIgnored(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 1)

	code, _ := svc.GetOrCreateRefCode(1)
	if err := svc.RegisterReferral(code, 1, "Me"); err != nil {
		t.Fatalf("self referral = %v, want nil", err)
	}
	if got := xpOf(t, db, 1); got != 0 {
		t.Fatalf("xp after self referral = %d, want 0", got)
	}
}

func TestRegisterReferralUnknownCode(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 2)

	if err := svc.RegisterReferral("NOPE1234", 2, "Alex"); err == nil {
		t.Fatal("unknown code must be rejected")
	}
}

func TestInfoBuildsLinkAndFriendList(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)

	code, _ := svc.GetOrCreateRefCode(1)
	if err := svc.RegisterReferral(code, 2, "Alex"); err != nil {
		t.Fatalf("register: %v", err)
	}

	info, err := svc.Info(1)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	wantLink := "https://t.me/tarot_test_bot?start=" + code
	if info.ReferralLink != wantLink {
		t.Fatalf("link = %s, want %s", info.ReferralLink, wantLink)
	}
	if len(info.Friends) != 1 || info.Friends[0].Name != "Alex" {
		t.Fatalf("friends = %+v, want one entry named Alex", info.Friends)
	}
	if !strings.EqualFold(info.Friends[0].Status, "joined") {
		t.Fatalf("friend status = %s, want joined", info.Friends[0].Status)
	}
}
