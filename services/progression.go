// services/progression.go
package services

import (
	"fmt"
	"log"

	"quest-widget-system/models"
	"quest-widget-system/progression"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureProgressRecord ensures a zero-valued Progress row exists (idempotent).
func (s *ProgressionService) EnsureProgressRecord(userID string) (*models.Progress, error) {
	var prog models.Progress
	err := s.DB.Where("user_id = ?", userID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.Progress{
			ID:     uuid.NewString(),
			UserID: userID,
			XP:     0,
			Streak: 0,
		}
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&prog).Error; err != nil {
			return nil, err
		}
		// Re-read in case a concurrent connect won the insert.
		if err := s.DB.Where("user_id = ?", userID).First(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// AwardXP adds xp to the user's progress inside a transaction and returns the
// updated row. Read-modify-write under a row lock.
func (s *ProgressionService) AwardXP(userID string, xp int64, reason string) (*models.Progress, error) {
	if xp <= 0 {
		return nil, fmt.Errorf("xp must be positive, got %d", xp)
	}
	var updated *models.Progress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prog models.Progress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", userID)
		}
		prog.XP += xp
		if err := tx.Save(&prog).Error; err != nil {
			return err
		}
		updated = &models.Progress{}
		*updated = prog
		log.Printf("🎮 XP awarded: user=%s +%d → total=%d, lvl=%d (reason: %s)",
			userID, xp, prog.XP, progression.LevelForXP(prog.XP), reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetXP overwrites the XP counter. This is the widget dispatcher's write-back
// target: last write wins.
func (s *ProgressionService) SetXP(userID string, xp int64) (*models.Progress, error) {
	if xp < 0 {
		return nil, fmt.Errorf("xp must be non-negative, got %d", xp)
	}
	var updated *models.Progress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prog models.Progress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", userID)
		}
		prog.XP = xp
		if err := tx.Save(&prog).Error; err != nil {
			return err
		}
		updated = &models.Progress{}
		*updated = prog
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// InsertCompletion records a completion without awarding XP (the widget's
// optimistic grant owns the XP write-back). Returns granted=false when the
// completion key already exists — the unique index is the arbiter, so retries,
// duplicated tabs and reconnects collapse onto one grant.
func (s *ProgressionService) InsertCompletion(userID, taskID, completedOn string, xpAwarded int64, source string) (bool, error) {
	completion := models.Completion{
		ID:          uuid.NewString(),
		UserID:      userID,
		TaskID:      taskID,
		CompletedOn: completedOn,
		XPAwarded:   xpAwarded,
		Source:      source,
	}
	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "task_id"}, {Name: "completed_on"}},
		DoNothing: true,
	}).Create(&completion)
	if res.Error != nil {
		return false, fmt.Errorf("insert completion: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CompleteWithAward inserts a completion and awards its XP atomically. Used by
// server-authoritative flows (verification, boosts) where the server, not the
// widget, persists the grant.
func (s *ProgressionService) CompleteWithAward(userID, taskID, completedOn string, xp int64, source string) (granted bool, err error) {
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		completion := models.Completion{
			ID:          uuid.NewString(),
			UserID:      userID,
			TaskID:      taskID,
			CompletedOn: completedOn,
			XPAwarded:   xp,
			Source:      source,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "task_id"}, {Name: "completed_on"}},
			DoNothing: true,
		}).Create(&completion)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already completed — no award
		}
		granted = true

		var prog models.Progress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", userID)
		}
		prog.XP += xp
		return tx.Save(&prog).Error
	})
	return granted, err
}

// ListCompletions returns all completion rows for a user.
func (s *ProgressionService) ListCompletions(userID string) ([]models.Completion, error) {
	var completions []models.Completion
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&completions).Error
	return completions, err
}

// GlobalXP returns the wallet's XP summed across all projects. Prefers the
// worker-maintained mirror; falls back to a live aggregate when the mirror has
// not caught up yet.
func (s *ProgressionService) GlobalXP(walletAddress string) (int64, error) {
	var total models.WalletTotal
	err := s.DB.Where("wallet_address = ?", walletAddress).First(&total).Error
	if err == nil {
		return total.TotalXP, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	var sum int64
	err = s.DB.Model(&models.Progress{}).
		Select("COALESCE(SUM(progresses.xp), 0)").
		Joins("JOIN widget_users ON widget_users.id = progresses.user_id").
		Where("widget_users.wallet_address = ?", walletAddress).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("aggregate global xp: %w", err)
	}
	return sum, nil
}

// TodayBoosts lists the platforms a wallet has shared on today (UTC), scoped
// to the project.
func (s *ProgressionService) TodayBoosts(projectID, walletAddress, dayStamp string) ([]string, error) {
	var platforms []string
	err := s.DB.Model(&models.ViralBoost{}).
		Where("project_id = ? AND wallet_address = ? AND shared_on = ?", projectID, walletAddress, dayStamp).
		Pluck("platform", &platforms).Error
	return platforms, err
}

// RecordBoost grants a social-share boost at most once per platform per UTC
// day, awarding XP to the user's progress in the same transaction.
func (s *ProgressionService) RecordBoost(projectID, userID, walletAddress, platform, dayStamp string, xp int64) (bool, error) {
	var granted bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		boost := models.ViralBoost{
			ID:            uuid.NewString(),
			ProjectID:     projectID,
			WalletAddress: walletAddress,
			Platform:      platform,
			SharedOn:      dayStamp,
			XPAwarded:     xp,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "project_id"}, {Name: "wallet_address"},
				{Name: "platform"}, {Name: "shared_on"},
			},
			DoNothing: true,
		}).Create(&boost)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		granted = true

		var prog models.Progress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", userID)
		}
		prog.XP += xp
		return tx.Save(&prog).Error
	})
	return granted, err
}
