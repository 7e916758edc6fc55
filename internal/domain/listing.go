package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ListingStatusActive  = "active"
	ListingStatusSoldOut = "sold_out"
)

// Listing is a published surplus-food item. Quantity is the remaining stock and only ever
// goes down through the store's conditional decrement.
type Listing struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID    string          `gorm:"column:seller_id;not null;index" json:"seller_id"`
	SellerEmail string          `gorm:"column:seller_email" json:"-"`
	Title       string          `gorm:"column:title;not null" json:"title"`
	Description *string         `gorm:"column:description" json:"description"`
	Price       float64         `gorm:"column:price;type:decimal(12,2);not null;check:price > 0" json:"price"`
	Quantity    int             `gorm:"column:quantity;not null;check:quantity >= 0" json:"quantity"`
	ImageURL    string          `gorm:"column:image_url;not null" json:"image_url"`
	Location    *string         `gorm:"column:location" json:"location"`
	ExpiresOn   *datatypes.Date `gorm:"column:expires_on" json:"expires_on"`
	Status      string          `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = ListingStatusActive
	}
	return nil
}

// Active reports whether the listing still has stock to sell.
func (l *Listing) Active() bool {
	return l.Quantity > 0
}
