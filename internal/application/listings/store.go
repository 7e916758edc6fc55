package listings

import (
	"context"

	"savemyfoods-backend/internal/domain"

	"github.com/google/uuid"
)

// Store is the transactional system of record for listings and purchases.
//
// DecrementInventory must be a single atomic conditional update at the store level:
// it subtracts quantity only when the current quantity is at least quantity, and otherwise
// returns ErrInsufficientStock without mutating anything. Callers never read-then-write stock.
type Store interface {
	InsertListing(ctx context.Context, listing *domain.Listing) error
	DecrementInventory(ctx context.Context, listingID uuid.UUID, quantity int) (*domain.Listing, error)
	InsertPurchase(ctx context.Context, purchase *domain.Purchase) error
	GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error)
	ListListings(ctx context.Context, filter ListFilter) ([]domain.Listing, error)
}

// EventRecorder is implemented by stores that keep a listing audit trail.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event *domain.ListingEvent) error
}

// ListFilter narrows ListListings. Zero value lists everything, newest first.
type ListFilter struct {
	Status   string
	SellerID string
}
