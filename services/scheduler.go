// services/scheduler.go
package services

import (
	"log"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/go-co-op/gocron/v2"
)

// pools with fewer unassigned codes than this trigger a refill warning
const promoPoolLowWater = 10

const stalePurchaseAge = 24 * time.Hour

// StartMaintenanceScheduler runs the periodic housekeeping: closing stale
// pending purchases and warning when promo pools run low.
func StartMaintenanceScheduler(purchases *PurchaseService, promos *PromoPoolService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 10 minutes: expire pending purchases the provider never settled
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			expired, err := purchases.ExpireStalePending(stalePurchaseAge)
			if err != nil {
				log.Printf("[Scheduler] purchase expiry failed: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("[Scheduler] expired %d stale pending purchase(s)", expired)
			}
		}),
	)

	// Every hour: check promo pool levels so operators can refill in time
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			for _, percent := range models.PromoPoolPercents {
				remaining, err := promos.CountAvailable(percent)
				if err != nil {
					log.Printf("[Scheduler] pool check %d%% failed: %v", percent, err)
					continue
				}
				if remaining < promoPoolLowWater {
					log.Printf("⚠️ [Scheduler] promo pool %d%% low: %d code(s) left — refill needed", percent, remaining)
				}
			}
		}),
	)
}
