package models

import (
	"time"

	"github.com/google/uuid"
)

// Recognition visibility levels.
const (
	VisibilityPublic  = "public"
	VisibilityTeam    = "team"
	VisibilityPrivate = "private"
)

// Recognition is peer-to-peer kudos. The recipient is credited
// HappyCoins when the recognition is recorded.
type Recognition struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FromUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"from_user_id"`
	ToUserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"to_user_id"`
	Type       string    `gorm:"size:40;default:'kudos'" json:"type"`
	Message    string    `gorm:"size:500" json:"message"`
	Visibility string    `gorm:"size:20;default:'public'" json:"visibility"`
	HappyCoins int       `gorm:"default:25" json:"happy_coins"`
	CreatedAt  time.Time `json:"created_at"`
	FromUser   User      `gorm:"foreignKey:FromUserID" json:"-"`
	ToUser     User      `gorm:"foreignKey:ToUserID" json:"-"`
}
