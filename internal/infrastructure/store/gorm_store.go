package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"savemyfoods-backend/internal/application/listings"
	"savemyfoods-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore keeps listings and purchases in a SQL database through GORM.
type GormStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

var _ listings.Store = (*GormStore)(nil)

func (s *GormStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// InsertListing creates the listing and its CREATED event in one transaction.
func (s *GormStore) InsertListing(ctx context.Context, listing *domain.Listing) error {
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = s.now()
	}
	listing.UpdatedAt = listing.CreatedAt
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
		eventData, _ := json.Marshal(map[string]interface{}{
			"quantity": listing.Quantity,
			"price":    listing.Price,
		})
		seller := listing.SellerID
		return tx.Create(&domain.ListingEvent{
			ListingID: listing.ID,
			EventType: domain.ListingEventCreated,
			ActorID:   &seller,
			EventData: datatypes.JSON(eventData),
			CreatedAt: listing.CreatedAt,
		}).Error
	})
}

// DecrementInventory subtracts quantity with a single conditional UPDATE; the affected-row
// count decides the outcome, so concurrent callers can never oversell.
func (s *GormStore) DecrementInventory(ctx context.Context, listingID uuid.UUID, quantity int) (*domain.Listing, error) {
	var updated domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND quantity >= ?", listingID, quantity).
			Updates(map[string]interface{}{
				"quantity":   gorm.Expr("quantity - ?", quantity),
				"status":     gorm.Expr("CASE WHEN quantity - ? <= 0 THEN ? ELSE status END", quantity, domain.ListingStatusSoldOut),
				"updated_at": s.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("decrement: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Listing{}).Where("id = ?", listingID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return listings.ErrListingNotFound
			}
			return listings.ErrInsufficientStock
		}

		if err := tx.Where("id = ?", listingID).First(&updated).Error; err != nil {
			return err
		}
		eventType := domain.ListingEventPartiallyFilled
		if updated.Quantity == 0 {
			eventType = domain.ListingEventFilled
		}
		eventData, _ := json.Marshal(map[string]interface{}{
			"bought_quantity":    quantity,
			"remaining_quantity": updated.Quantity,
		})
		return tx.Create(&domain.ListingEvent{
			ListingID: listingID,
			EventType: eventType,
			EventData: datatypes.JSON(eventData),
			CreatedAt: s.now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *GormStore) InsertPurchase(ctx context.Context, purchase *domain.Purchase) error {
	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = s.now()
	}
	if err := s.DB.WithContext(ctx).Create(purchase).Error; err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (s *GormStore) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listings.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// ListListings returns listings newest first.
func (s *GormStore) ListListings(ctx context.Context, filter listings.ListFilter) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Listing{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	out := []domain.Listing{}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) RecordEvent(ctx context.Context, event *domain.ListingEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	return s.DB.WithContext(ctx).Create(event).Error
}
