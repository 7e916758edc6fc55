package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationTypePurchase    = "purchase"
	NotificationTypeExpiryAlert = "expiry_alert"
)

type Notification struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;not null;index" json:"user_id"`
	Type      string         `gorm:"column:type;type:varchar(32);not null" json:"type"`
	ListingID *uuid.UUID     `gorm:"column:listing_id;type:uuid;index" json:"listing_id"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	Read      bool           `gorm:"column:read;not null;default:false" json:"read"`
	ReadAt    *time.Time     `gorm:"column:read_at" json:"read_at"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
