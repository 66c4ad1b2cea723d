package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectStatus indicates whether the project has been published to a backend.
// Draft projects are preview-only: the widget runs against local state and no
// remote rows exist for them.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusPublished ProjectStatus = "published"
)

// Project is one widget deployment: a set of tasks plus pass-through display
// configuration authored in the builder.
type Project struct {
	ID        string        `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name      string        `gorm:"not null" json:"name"`
	Slug      string        `gorm:"uniqueIndex;not null" json:"slug"`
	WidgetKey string        `gorm:"uniqueIndex;not null" json:"widget_key"` // public embed key
	Status    ProjectStatus `gorm:"not null;default:'draft';index" json:"status"`

	// Display config — pass-through to the widget, defaulted but never validated
	AccentColor string `json:"accent_color"`
	Position    string `json:"position"` // e.g., "bottom-right"
	Theme       string `json:"theme"`
	Size        string `json:"size"`

	PublishedAt *time.Time `json:"published_at,omitempty"`

	Tasks []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`

	Timestamps
}

func (p *Project) IsPublished() bool {
	return p.Status == ProjectStatusPublished
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
