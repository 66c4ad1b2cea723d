package workers

import (
	"context"
	"log"
	"time"

	"quest-widget-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// walletAggregate is one row of the cross-project XP rollup.
type walletAggregate struct {
	WalletAddress string
	TotalXP       int64
	Projects      int
}

// PollGlobalXP periodically rolls every wallet's XP across all projects into
// the wallet_totals mirror so the widget's global-XP read is a single-row
// lookup. Last-write-wins per wallet; a missed tick just means the mirror lags
// until the next one.
func PollGlobalXP(ctx context.Context, db *gorm.DB, pollInterval time.Duration) {
	log.Println("Starting global XP aggregation worker...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Global XP worker stopped.")
			return
		case <-ticker.C:
			var aggregates []walletAggregate
			err := db.Model(&models.Progress{}).
				Select("widget_users.wallet_address, SUM(progresses.xp) AS total_xp, COUNT(DISTINCT widget_users.project_id) AS projects").
				Joins("JOIN widget_users ON widget_users.id = progresses.user_id").
				Group("widget_users.wallet_address").
				Scan(&aggregates).Error
			if err != nil {
				log.Printf("❌ Global XP aggregation query failed: %v", err)
				continue
			}
			if len(aggregates) == 0 {
				continue
			}

			totals := make([]models.WalletTotal, len(aggregates))
			for i, agg := range aggregates {
				totals[i] = models.WalletTotal{
					WalletAddress: agg.WalletAddress,
					TotalXP:       agg.TotalXP,
					Projects:      agg.Projects,
				}
			}

			// Batch upsert — one statement on postgres.
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "wallet_address"}},
				DoUpdates: clause.AssignmentColumns([]string{"total_xp", "projects", "updated_at"}),
			}).Create(&totals).Error; err != nil {
				log.Printf("❌ Failed to upsert %d wallet total(s): %v", len(totals), err)
				continue
			}

			log.Printf("📊 Refreshed global XP for %d wallet(s)", len(totals))
		}
	}
}
