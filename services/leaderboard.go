// services/leaderboard.go
package services

import (
	"context"
	"fmt"
	"log"

	"quest-widget-system/models"
	"quest-widget-system/progression"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// LeaderboardService serves the all-time XP leaderboard per project. Ranks are
// read from a Redis sorted set rebuilt by the scheduler; Postgres is the
// fallback when the cache is cold or Redis is down — rank reads must never
// block a claim on cache availability.
type LeaderboardService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Redis: rdb}
}

func leaderboardKey(projectID string) string {
	return "lb:alltime:" + projectID
}

// Rank returns the wallet's 1-based all-time rank within the project.
func (s *LeaderboardService) Rank(ctx context.Context, projectID, walletAddress string) (int, error) {
	if s.Redis != nil {
		rank, err := s.Redis.ZRevRank(ctx, leaderboardKey(projectID), walletAddress).Result()
		if err == nil {
			return int(rank) + 1, nil
		}
		if err != redis.Nil {
			log.Printf("[Leaderboard] Redis rank lookup failed, falling back to DB: %v", err)
		}
	}
	return s.rankFromDB(projectID, walletAddress)
}

func (s *LeaderboardService) rankFromDB(projectID, walletAddress string) (int, error) {
	var xp int64
	err := s.DB.Model(&models.Progress{}).
		Select("progresses.xp").
		Joins("JOIN widget_users ON widget_users.id = progresses.user_id").
		Where("widget_users.project_id = ? AND widget_users.wallet_address = ?", projectID, walletAddress).
		Scan(&xp).Error
	if err != nil {
		return 0, fmt.Errorf("load wallet xp: %w", err)
	}

	var ahead int64
	err = s.DB.Model(&models.Progress{}).
		Joins("JOIN widget_users ON widget_users.id = progresses.user_id").
		Where("widget_users.project_id = ? AND progresses.xp > ?", projectID, xp).
		Count(&ahead).Error
	if err != nil {
		return 0, fmt.Errorf("count higher ranks: %w", err)
	}
	return int(ahead) + 1, nil
}

// Top returns the project's top entries, capped at 100.
func (s *LeaderboardService) Top(ctx context.Context, projectID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	type row struct {
		WalletAddress string
		XP            int64
	}
	var rows []row
	err := s.DB.Model(&models.Progress{}).
		Select("widget_users.wallet_address, progresses.xp").
		Joins("JOIN widget_users ON widget_users.id = progresses.user_id").
		Where("widget_users.project_id = ?", projectID).
		Order("progresses.xp DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.LeaderboardEntry{
			Rank:          i + 1,
			WalletAddress: r.WalletAddress,
			XP:            r.XP,
			Level:         progression.LevelForXP(r.XP),
		}
	}
	return entries, nil
}

// Rebuild refreshes the project's Redis sorted set from Postgres.
func (s *LeaderboardService) Rebuild(ctx context.Context, projectID string) error {
	if s.Redis == nil {
		return nil
	}

	type row struct {
		WalletAddress string
		XP            int64
	}
	var rows []row
	err := s.DB.Model(&models.Progress{}).
		Select("widget_users.wallet_address, progresses.xp").
		Joins("JOIN widget_users ON widget_users.id = progresses.user_id").
		Where("widget_users.project_id = ?", projectID).
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("load scores for rebuild: %w", err)
	}

	key := leaderboardKey(projectID)
	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, key)
	for _, r := range rows {
		pipe.ZAdd(ctx, key, &redis.Z{Score: float64(r.XP), Member: r.WalletAddress})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild leaderboard cache: %w", err)
	}
	return nil
}

// RebuildAll refreshes every published project's leaderboard cache.
func (s *LeaderboardService) RebuildAll(ctx context.Context) error {
	var projectIDs []string
	if err := s.DB.Model(&models.Project{}).
		Where("status = ?", models.ProjectStatusPublished).
		Pluck("id", &projectIDs).Error; err != nil {
		return err
	}
	for _, id := range projectIDs {
		if err := s.Rebuild(ctx, id); err != nil {
			log.Printf("[Leaderboard] Rebuild failed for project %s: %v", id, err)
		}
	}
	return nil
}
