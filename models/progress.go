package models

import "time"

// Progress is the per-(wallet, project) authoritative progression row.
// XP never decreases outside of admin resets; streak cycles 1..5 through the
// daily claim; LastClaimDate gates one daily bonus per UTC calendar day.
type Progress struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	XP            int64      `gorm:"not null;default:0" json:"xp"`
	Streak        int        `gorm:"not null;default:0" json:"streak"`
	LastClaimDate *time.Time `json:"last_claim_date,omitempty"`

	Timestamps
}

// Completion records one granted reward. CompletedOn is the UTC day stamp
// ("2006-01-02") for daily-cadence tasks and the empty string for once — the
// unique index over (user, task, completed_on) is the server-side guarantee
// that a completion key grants at most once.
type Completion struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string `gorm:"type:uuid;not null;uniqueIndex:idx_completions_key,priority:1" json:"user_id"`
	TaskID      string `gorm:"type:uuid;not null;uniqueIndex:idx_completions_key,priority:2" json:"task_id"`
	CompletedOn string `gorm:"type:varchar(10);not null;default:'';uniqueIndex:idx_completions_key,priority:3" json:"completed_on"`
	XPAwarded   int64  `gorm:"not null;default:0" json:"xp_awarded"`
	Source      string `gorm:"type:varchar(16);not null;default:'widget'" json:"source"` // widget | verified | boost

	Timestamps
}

// ViralBoost is a social-share completion, deduplicated per platform per UTC day.
type ViralBoost struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProjectID     string `gorm:"type:uuid;not null;uniqueIndex:idx_boosts_key,priority:1" json:"project_id"`
	WalletAddress string `gorm:"type:varchar(128);not null;uniqueIndex:idx_boosts_key,priority:2" json:"wallet_address"`
	Platform      string `gorm:"type:varchar(32);not null;uniqueIndex:idx_boosts_key,priority:3" json:"platform"`
	SharedOn      string `gorm:"type:varchar(10);not null;uniqueIndex:idx_boosts_key,priority:4" json:"shared_on"` // UTC day stamp
	XPAwarded     int64  `gorm:"not null;default:0" json:"xp_awarded"`

	Timestamps
}

// WalletTotal mirrors a wallet's XP aggregated across every project, refreshed
// by the global XP worker. Read path for the widget's tier/level display.
type WalletTotal struct {
	WalletAddress string    `gorm:"primaryKey;type:varchar(128)" json:"wallet_address"`
	TotalXP       int64     `gorm:"not null;default:0" json:"total_xp"`
	Projects      int       `gorm:"not null;default:0" json:"projects"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
