package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"savemyfoods-backend/internal/application/listings"
	"savemyfoods-backend/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Its mutex plays the role of the database's row lock:
// the compare-and-subtract in DecrementInventory happens under it, never in the caller.
type MemoryStore struct {
	mu        sync.Mutex
	listings  map[uuid.UUID]domain.Listing
	purchases []domain.Purchase
	events    []domain.ListingEvent
	Now       func() time.Time
}

var _ listings.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[uuid.UUID]domain.Listing)}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *MemoryStore) InsertListing(ctx context.Context, listing *domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = m.now()
	}
	listing.UpdatedAt = listing.CreatedAt
	if listing.Status == "" {
		listing.Status = domain.ListingStatusActive
	}
	m.listings[listing.ID] = *listing
	m.events = append(m.events, domain.ListingEvent{
		EventID:   uuid.New(),
		ListingID: listing.ID,
		EventType: domain.ListingEventCreated,
		CreatedAt: listing.CreatedAt,
	})
	return nil
}

func (m *MemoryStore) DecrementInventory(ctx context.Context, listingID uuid.UUID, quantity int) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[listingID]
	if !ok {
		return nil, listings.ErrListingNotFound
	}
	if l.Quantity < quantity {
		return nil, listings.ErrInsufficientStock
	}
	l.Quantity -= quantity
	l.UpdatedAt = m.now()
	eventType := domain.ListingEventPartiallyFilled
	if l.Quantity == 0 {
		l.Status = domain.ListingStatusSoldOut
		eventType = domain.ListingEventFilled
	}
	m.listings[listingID] = l
	m.events = append(m.events, domain.ListingEvent{
		EventID:   uuid.New(),
		ListingID: listingID,
		EventType: eventType,
		CreatedAt: l.UpdatedAt,
	})
	return &l, nil
}

func (m *MemoryStore) InsertPurchase(ctx context.Context, purchase *domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = m.now()
	}
	m.purchases = append(m.purchases, *purchase)
	return nil
}

func (m *MemoryStore) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[listingID]
	if !ok {
		return nil, listings.ErrListingNotFound
	}
	return &l, nil
}

func (m *MemoryStore) ListListings(ctx context.Context, filter listings.ListFilter) ([]domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.SellerID != "" && l.SellerID != filter.SellerID {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) RecordEvent(ctx context.Context, event *domain.ListingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = m.now()
	}
	m.events = append(m.events, *event)
	return nil
}

// Purchases returns a copy of the recorded purchases.
func (m *MemoryStore) Purchases() []domain.Purchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Purchase(nil), m.purchases...)
}

// Events returns a copy of the audit trail for one listing.
func (m *MemoryStore) Events(listingID uuid.UUID) []domain.ListingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ListingEvent
	for _, e := range m.events {
		if e.ListingID == listingID {
			out = append(out, e)
		}
	}
	return out
}
