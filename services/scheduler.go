// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"quest-widget-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic jobs: leaderboard cache
// rebuilds and expired viral-boost cleanup. The returned scheduler must be
// shut down by the caller on exit.
func StartMaintenanceScheduler(lb *LeaderboardService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	// Every 5 minutes: rebuild leaderboard caches for published projects
	if _, err := sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := lb.RebuildAll(ctx); err != nil {
				log.Printf("[Scheduler] Leaderboard rebuild error: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	// Every 6 hours: drop viral-boost rows older than a week — they only
	// matter for the current UTC day, the week of slack is for operators
	if _, err := sched.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")
			res := lb.DB.Where("shared_on < ?", cutoff).Delete(&models.ViralBoost{})
			if res.Error != nil {
				log.Printf("[Scheduler] Boost cleanup error: %v", res.Error)
			} else if res.RowsAffected > 0 {
				log.Printf("✅ Purged %d stale viral boost(s)", res.RowsAffected)
			}
		}),
	); err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
