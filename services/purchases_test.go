package services

import (
	"errors"
	"testing"
	"time"

	"tarot-miniapp-backend/models"
)

func TestCreatePurchaseUnknownPack(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)
	svc := NewPurchaseService(db, tasks)

	if _, err := svc.CreatePurchase(1, 7, nil); !errors.Is(err, ErrUnknownPack) {
		t.Fatalf("create = %v, want ErrUnknownPack", err)
	}
}

func TestCreatePurchaseAppliesPromoDiscount(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)
	svc := NewPurchaseService(db, tasks)
	seedPromoCodes(t, db, 10, "TEN-A")
	if err := tasks.Promos.Grant(1, "TEN-A", "admin"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	code := "TEN-A"
	purchase, err := svc.CreatePurchase(1, 10, &code)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if purchase.BasePriceRub != 49 {
		t.Fatalf("base price = %v, want 49", purchase.BasePriceRub)
	}
	if purchase.FinalPriceRub != 44.1 {
		t.Fatalf("final price = %v, want 44.1", purchase.FinalPriceRub)
	}
	if purchase.DiscountPercent == nil || *purchase.DiscountPercent != 10 {
		t.Fatalf("discount = %v, want 10", purchase.DiscountPercent)
	}
	if purchase.Status != models.PurchaseStatusPending {
		t.Fatalf("status = %s, want pending", purchase.Status)
	}

	// the code is reserved, not burned, until the order is paid
	if grants := promoGrantsOf(t, db, 1); grants[0].UsedAt != nil {
		t.Fatal("promo must not be burned at order creation")
	}
}

func TestCreatePurchaseRejectsForeignPromo(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)
	svc := NewPurchaseService(db, tasks)
	seedPromoCodes(t, db, 10, "TEN-A")
	if err := tasks.Promos.Grant(2, "TEN-A", "admin"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	code := "TEN-A"
	if _, err := svc.CreatePurchase(1, 10, &code); err == nil {
		t.Fatal("using someone else's code must fail")
	}
}

func TestMarkPaidSettlesExactlyOnce(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)
	svc := NewPurchaseService(db, tasks)

	purchase, err := svc.CreatePurchase(1, 10, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	paidAt := time.Now().UTC()
	if err := svc.MarkPaid(purchase.ID, paidAt); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	// 10 pack messages + 5 (first purchase bundle) + 10 (starter pack bundle)
	if got := balanceOf(t, db, 1); got != 25 {
		t.Fatalf("balance = %d, want 25", got)
	}
	// 50 + 80 task xp, then the 100 XP milestone adds 20
	if got := xpOf(t, db, 1); got != 150 {
		t.Fatalf("xp = %d, want 150", got)
	}
	for _, code := range []string{"BUY_0", "BUY_1"} {
		if row := taskRow(t, db, 1, code); !row.RewardClaimed {
			t.Fatalf("%s should be claimed after the first paid order", code)
		}
	}

	var settled models.MessagePurchase
	if err := db.Where("id = ?", purchase.ID).Take(&settled).Error; err != nil {
		t.Fatalf("reload purchase: %v", err)
	}
	if settled.Status != models.PurchaseStatusPaid || settled.PaidAt == nil {
		t.Fatalf("purchase = %s/%v, want paid with a timestamp", settled.Status, settled.PaidAt)
	}

	// a duplicated provider confirmation must not credit again
	if err := svc.MarkPaid(purchase.ID, paidAt.Add(time.Minute)); err != nil {
		t.Fatalf("second mark paid: %v", err)
	}
	if got := balanceOf(t, db, 1); got != 25 {
		t.Fatalf("balance after duplicate confirmation = %d, want 25", got)
	}
	if got := xpOf(t, db, 1); got != 150 {
		t.Fatalf("xp after duplicate confirmation = %d, want 150", got)
	}
}

func TestMarkPaidBurnsThePromo(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)
	svc := NewPurchaseService(db, tasks)
	seedPromoCodes(t, db, 10, "TEN-A")
	if err := tasks.Promos.Grant(1, "TEN-A", "admin"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	code := "TEN-A"
	purchase, err := svc.CreatePurchase(1, 50, &code)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.MarkPaid(purchase.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if grants := promoGrantsOf(t, db, 1); grants[0].UsedAt == nil {
		t.Fatal("promo must be burned when the order is paid")
	}
}

func TestExpireStalePending(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)
	svc := NewPurchaseService(db, tasks)

	stale, err := svc.CreatePurchase(1, 10, nil)
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	fresh, err := svc.CreatePurchase(1, 50, nil)
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}
	backdatePurchase(t, db, stale.ID, 25*time.Hour)

	expired, err := svc.ExpireStalePending(24 * time.Hour)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	var reloaded models.MessagePurchase
	if err := db.Where("id = ?", fresh.ID).Take(&reloaded).Error; err != nil {
		t.Fatalf("reload fresh: %v", err)
	}
	if reloaded.Status != models.PurchaseStatusPending {
		t.Fatalf("fresh purchase status = %s, want pending", reloaded.Status)
	}

	// a late provider confirmation for the expired order credits nothing
	if err := svc.MarkPaid(stale.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark paid expired: %v", err)
	}
	if got := balanceOf(t, db, 1); got != 0 {
		t.Fatalf("balance after settling an expired order = %d, want 0", got)
	}
}

func TestListForUserNewestFirst(t *testing.T) {
	tasks, db := newTestTaskService(t)
	seedUser(t, db, 1)
	svc := NewPurchaseService(db, tasks)

	first, err := svc.CreatePurchase(1, 10, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	backdatePurchase(t, db, first.ID, time.Hour)
	second, err := svc.CreatePurchase(1, 50, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	purchases, err := svc.ListForUser(1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(purchases) != 2 {
		t.Fatalf("purchases = %d, want 2", len(purchases))
	}
	if purchases[0].ID != second.ID {
		t.Fatalf("first listed = %s, want the newest order %s", purchases[0].ID, second.ID)
	}
}
