// services/users.go
package services

import (
	"fmt"
	"strings"

	"quest-widget-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// UpsertWidgetUser resolves-or-creates the user row for (project, wallet).
// Concurrent upserts from multiple tabs ride the unique index: ON CONFLICT DO
// NOTHING, then read back — never read-then-insert.
func (s *UserService) UpsertWidgetUser(projectID, walletAddress string) (*models.WidgetUser, error) {
	walletAddress = strings.ToLower(strings.TrimSpace(walletAddress))
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address is required")
	}

	user := models.WidgetUser{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		WalletAddress: walletAddress,
	}
	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "wallet_address"}},
		DoNothing: true,
	}).Create(&user)
	if res.Error != nil {
		return nil, fmt.Errorf("upsert widget user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race (or row pre-existed) — fetch the winner.
		if err := s.DB.Where("project_id = ? AND wallet_address = ?", projectID, walletAddress).
			First(&user).Error; err != nil {
			return nil, fmt.Errorf("fetch widget user after conflict: %w", err)
		}
	}
	return &user, nil
}

// GetWidgetUser loads a user by id, scoped to the project.
func (s *UserService) GetWidgetUser(projectID, userID string) (*models.WidgetUser, error) {
	var user models.WidgetUser
	if err := s.DB.Where("id = ? AND project_id = ?", userID, projectID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
