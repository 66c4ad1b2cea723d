// services/claims.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"quest-widget-system/models"
	"quest-widget-system/progression"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimService owns the atomic claim RPCs: the daily streak bonus and the
// leaderboard rank rewards. Both run as single transactions so two tabs
// racing on the same button cannot double-claim.
type ClaimService struct {
	DB          *gorm.DB
	Leaderboard *LeaderboardService
	now         func() time.Time
}

func NewClaimService(db *gorm.DB, lb *LeaderboardService) *ClaimService {
	return &ClaimService{DB: db, Leaderboard: lb, now: time.Now}
}

// DailyClaimResult is the atomic daily-claim RPC response.
type DailyClaimResult struct {
	Success    bool   `json:"success"`
	NewTotalXP int64  `json:"new_total_xp"`
	NewStreak  int    `json:"new_streak"`
	Bonus      int64  `json:"bonus"`
	Message    string `json:"message,omitempty"`
}

// ClaimDaily performs the eligibility check and the streak increment as one
// atomic operation on the locked progress row: one claim per UTC calendar day,
// streak mod-cycled 1..5, bonus 100·2^(streak-1).
func (s *ClaimService) ClaimDaily(userID string) (*DailyClaimResult, error) {
	var result *DailyClaimResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prog models.Progress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", userID)
		}

		now := s.now()
		if progression.ClaimedToday(prog.LastClaimDate, now) {
			result = &DailyClaimResult{
				Success:    false,
				NewTotalXP: prog.XP,
				NewStreak:  prog.Streak,
				Message:    "daily bonus already claimed today",
			}
			return nil
		}

		newStreak := progression.NextStreak(prog.Streak)
		bonus := progression.DailyBonus(newStreak)

		prog.Streak = newStreak
		prog.XP += bonus
		claimedAt := now.UTC()
		prog.LastClaimDate = &claimedAt
		if err := tx.Save(&prog).Error; err != nil {
			return err
		}

		result = &DailyClaimResult{
			Success:    true,
			NewTotalXP: prog.XP,
			NewStreak:  newStreak,
			Bonus:      bonus,
		}
		log.Printf("🔥 Daily bonus claimed: user=%s streak=%d bonus=%d", userID, newStreak, bonus)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LeaderboardClaimResult is the atomic leaderboard-claim RPC response. The
// reward amount is computed server-side only; anything the widget showed
// beforehand was advisory.
type LeaderboardClaimResult struct {
	Success bool   `json:"success"`
	Reward  int64  `json:"reward"`
	Rank    int    `json:"rank"`
	Message string `json:"message,omitempty"`
}

// ClaimLeaderboardReward grants the rank-tiered reward for the current window.
// Eligibility: rank <= 10 on the project's all-time leaderboard and the period
// not yet claimed this window. The unique index on (user, period, window) is
// the atomic gate.
func (s *ClaimService) ClaimLeaderboardReward(ctx context.Context, user *models.WidgetUser, period progression.ClaimPeriod) (*LeaderboardClaimResult, error) {
	if period != progression.PeriodDaily && period != progression.PeriodWeekly {
		return nil, fmt.Errorf("unknown claim period %q", period)
	}

	rank, err := s.Leaderboard.Rank(ctx, user.ProjectID, user.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve leaderboard rank: %w", err)
	}

	reward := progression.LeaderboardReward(rank, period)
	if reward == 0 {
		return &LeaderboardClaimResult{
			Success: false,
			Rank:    rank,
			Message: fmt.Sprintf("rank %d is outside the top 10", rank),
		}, nil
	}

	window := progression.WindowStamp(period, s.now())
	var result *LeaderboardClaimResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		claim := models.LeaderboardClaim{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			ProjectID:   user.ProjectID,
			Period:      string(period),
			WindowStamp: window,
			Rank:        rank,
			Amount:      reward,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "period"}, {Name: "window_stamp"}},
			DoNothing: true,
		}).Create(&claim)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			result = &LeaderboardClaimResult{
				Success: false,
				Rank:    rank,
				Message: fmt.Sprintf("%s reward already claimed for %s", period, window),
			}
			return nil
		}

		var prog models.Progress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", user.ID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", user.ID)
		}
		prog.XP += reward
		if err := tx.Save(&prog).Error; err != nil {
			return err
		}

		result = &LeaderboardClaimResult{Success: true, Reward: reward, Rank: rank}
		log.Printf("🏅 Leaderboard reward claimed: user=%s rank=%d period=%s amount=%d",
			user.ID, rank, period, reward)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
