package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

// Notification is an in-app message for an admin, supplier or customer.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RecipientType enums.Role             `gorm:"column:recipient_type;not null" json:"recipient_type"`
	RecipientID   string                 `gorm:"column:recipient_id;not null" json:"recipient_id"`
	Type          enums.NotificationType `gorm:"column:type;not null" json:"type"`
	Title         string                 `gorm:"column:title;not null" json:"title"`
	Message       string                 `gorm:"column:message;not null" json:"message"`
	Link          *string                `gorm:"column:link" json:"link,omitempty"`
	ReadAt        *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
