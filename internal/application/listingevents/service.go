package listingevents

import (
	"context"
	"errors"

	"savemyfoods-backend/internal/application/listings"
	"savemyfoods-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrForbidden = errors.New("Only the seller can view this listing's history")

type Service struct {
	DB *gorm.DB
}

// ListForListing returns the audit trail of one listing, oldest first. Only the seller may read it.
func (s *Service) ListForListing(ctx context.Context, listingID uuid.UUID, requesterID string) ([]domain.ListingEvent, error) {
	if s.DB == nil {
		return nil, listings.ErrStoreUnavailable
	}
	if listingID == uuid.Nil {
		return nil, listings.ErrListingNotFound
	}

	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Select("id", "seller_id").Where("id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listings.ErrListingNotFound
		}
		return nil, err
	}
	if listing.SellerID != requesterID {
		return nil, ErrForbidden
	}

	events := make([]domain.ListingEvent, 0)
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
