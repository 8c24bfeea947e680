package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is a persisted in-app notification for a portal user.
type Notification struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID      `json:"recipient_id" gorm:"type:uuid;index;not null"`
	Topic       string         `json:"topic" gorm:"index;not null"`
	Title       string         `json:"title" gorm:"not null"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

