package models

// LeaderboardEntry is a row of the all-time XP leaderboard for a project.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	WalletAddress string `json:"wallet_address"`
	XP            int64  `json:"xp"`
	Level         int    `json:"level"`
}

// LeaderboardClaim records a claimed rank reward. WindowStamp is the UTC day
// stamp for the daily period and "YYYY-Www" (ISO week, Monday 00:00 UTC) for
// weekly — the unique index makes the claim atomic per window.
type LeaderboardClaim struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string `gorm:"type:uuid;not null;uniqueIndex:idx_lb_claims_window,priority:1" json:"user_id"`
	ProjectID   string `gorm:"type:uuid;not null;index" json:"project_id"`
	Period      string `gorm:"type:varchar(8);not null;uniqueIndex:idx_lb_claims_window,priority:2" json:"period"` // daily | weekly
	WindowStamp string `gorm:"type:varchar(10);not null;uniqueIndex:idx_lb_claims_window,priority:3" json:"window_stamp"`
	Rank        int    `gorm:"not null" json:"rank"`
	Amount      int64  `gorm:"not null" json:"amount"`

	Timestamps
}
