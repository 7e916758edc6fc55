package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Purchase is immutable once recorded. Its existence implies a successful decrement of
// exactly Quantity on the referenced listing.
type Purchase struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BuyerID     string    `gorm:"column:buyer_id;not null;index" json:"buyer_id"`
	Quantity    int       `gorm:"column:quantity;not null;check:quantity > 0" json:"quantity"`
	PurchasedAt time.Time `gorm:"column:purchased_at;not null" json:"purchased_at"`
}

func (Purchase) TableName() string {
	return "purchases"
}

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
