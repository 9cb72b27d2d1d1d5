package models

import (
	"time"

	"github.com/google/uuid"
)

// Check-in sources.
const (
	SourceWeb      = "web"
	SourceWhatsApp = "whatsapp"
	SourceSlack    = "slack"
)

// CheckIn is a once-per-day mood record. Day is the user's local
// calendar day truncated to midnight; the (user_id, day) unique index
// is the concurrency gate for the whole check-in pipeline.
type CheckIn struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_checkins_user_day" json:"user_id"`
	Day       time.Time `gorm:"not null;uniqueIndex:idx_checkins_user_day" json:"day"`
	Mood      int       `gorm:"not null" json:"mood"`
	Note      string    `gorm:"type:text" json:"note"`
	Source    string    `gorm:"size:20;default:'web'" json:"source"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}
