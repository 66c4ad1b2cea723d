package models

// WidgetUser is the synthetic per-project identity for a connected wallet.
// The (project, wallet) pair is unique so concurrent upserts from multiple
// tabs collapse onto one row via ON CONFLICT DO NOTHING.
type WidgetUser struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProjectID     string `gorm:"type:uuid;not null;uniqueIndex:idx_widget_users_project_wallet,priority:1" json:"project_id"`
	WalletAddress string `gorm:"type:varchar(128);not null;uniqueIndex:idx_widget_users_project_wallet,priority:2;index" json:"wallet_address"` // stored lowercased

	Timestamps
}
