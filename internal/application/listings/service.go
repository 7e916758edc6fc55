package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"savemyfoods-backend/internal/domain"
	"savemyfoods-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// ExpiryResolver determines a listing's expiry date, either by trusting the explicit one or by
// asking an external estimator. A nil result means "no expiry date".
type ExpiryResolver interface {
	Resolve(ctx context.Context, imageURL string, explicit *time.Time) *time.Time
}

// PurchaseNotifier is told about every recorded purchase. Failures never fail the purchase.
type PurchaseNotifier interface {
	NotifyPurchase(ctx context.Context, listing *domain.Listing, purchase *domain.Purchase) error
}

type Service struct {
	Store    Store
	Resolver ExpiryResolver
	Notifier PurchaseNotifier
	Now      func() time.Time
}

type CreateListingInput struct {
	Title       string     `validate:"required,max=200"`
	Description *string    `validate:"omitempty,max=2000"`
	Price       float64    `validate:"gt=0"`
	Quantity    int        `validate:"gt=0"`
	ImageURL    string     `validate:"required,url"`
	Location    *string    `validate:"omitempty,max=500"`
	ExpiresOn   *time.Time `validate:"-"`
	SellerEmail string     `validate:"omitempty,email"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateListing resolves the expiry date when none was supplied, then inserts the listing.
func (s *Service) CreateListing(ctx context.Context, sellerID string, in CreateListingInput) (*domain.Listing, error) {
	if s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	expiresOn := in.ExpiresOn
	if expiresOn == nil && s.Resolver != nil {
		expiresOn = s.Resolver.Resolve(ctx, in.ImageURL, nil)
	}

	listing := &domain.Listing{
		SellerID:    sellerID,
		SellerEmail: in.SellerEmail,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		ImageURL:    in.ImageURL,
		Location:    in.Location,
		Status:      domain.ListingStatusActive,
	}
	if expiresOn != nil {
		d := datatypes.Date(*expiresOn)
		listing.ExpiresOn = &d
	}

	if err := s.Store.InsertListing(ctx, listing); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("seller_id", sellerID).Msg("listing: insert failed")
		return nil, fmt.Errorf("%w: %v", ErrListingCreateFailed, err)
	}
	return listing, nil
}

// PurchaseListing atomically takes quantity units from the listing's stock and records the
// purchase. A failed record after a successful decrement is reported, not compensated.
func (s *Service) PurchaseListing(ctx context.Context, listingID uuid.UUID, buyerID string, quantity int) (*domain.Purchase, error) {
	if s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	// seller_id never changes, so this read only guards identity; stock is decided by the store.
	listing, err := s.Store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == buyerID {
		return nil, ErrSelfPurchase
	}

	updated, err := s.Store.DecrementInventory(ctx, listingID, quantity)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrListingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("decrement inventory: %w", err)
	}

	purchase := &domain.Purchase{
		ListingID:   listingID,
		BuyerID:     buyerID,
		Quantity:    quantity,
		PurchasedAt: s.now(),
	}
	if err := s.Store.InsertPurchase(ctx, purchase); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("listing_id", listingID.String()).
			Str("buyer_id", buyerID).
			Int("quantity", quantity).
			Msg("purchase: stock decremented but purchase record failed, manual reconciliation required")
		s.recordFailure(ctx, listingID, buyerID, quantity, err)
		return nil, fmt.Errorf("%w: %v", ErrPurchaseRecordFailed, err)
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifyPurchase(ctx, updated, purchase); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("listing_id", listingID.String()).Msg("purchase: seller notification failed")
		}
	}
	return purchase, nil
}

func (s *Service) recordFailure(ctx context.Context, listingID uuid.UUID, buyerID string, quantity int, cause error) {
	rec, ok := s.Store.(EventRecorder)
	if !ok {
		return
	}
	data, _ := json.Marshal(map[string]interface{}{
		"buyer_id": buyerID,
		"quantity": quantity,
		"error":    cause.Error(),
	})
	if err := rec.RecordEvent(ctx, &domain.ListingEvent{
		ListingID: listingID,
		EventType: domain.ListingEventRecordFailed,
		ActorID:   &buyerID,
		EventData: datatypes.JSON(data),
	}); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("listing_id", listingID.String()).Msg("purchase: could not record RECORD_FAILED event")
	}
}

func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	if s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	if listingID == uuid.Nil {
		return nil, ErrListingNotFound
	}
	return s.Store.GetListing(ctx, listingID)
}

// ListListings returns listings newest first.
func (s *Service) ListListings(ctx context.Context, filter ListFilter) ([]domain.Listing, error) {
	if s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	switch filter.Status {
	case "", domain.ListingStatusActive, domain.ListingStatusSoldOut:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", validation.ErrInvalid, filter.Status)
	}
	listings, err := s.Store.ListListings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch listings: %w", err)
	}
	return listings, nil
}
