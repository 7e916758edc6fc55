package listings_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"savemyfoods-backend/internal/application/listings"
	"savemyfoods-backend/internal/domain"
	"savemyfoods-backend/internal/infrastructure/store"
	"savemyfoods-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	mu     sync.Mutex
	calls  int
	result *time.Time
}

func (r *countingResolver) Resolve(ctx context.Context, imageURL string, explicit *time.Time) *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if explicit != nil {
		return explicit
	}
	return r.result
}

type failingPurchaseStore struct {
	*store.MemoryStore
}

func (f failingPurchaseStore) InsertPurchase(ctx context.Context, p *domain.Purchase) error {
	return errors.New("connection reset")
}

type failingInsertStore struct {
	*store.MemoryStore
}

func (f failingInsertStore) InsertListing(ctx context.Context, l *domain.Listing) error {
	return errors.New("violates check constraint")
}

type recordingNotifier struct {
	mu        sync.Mutex
	purchases []domain.Purchase
	err       error
}

func (n *recordingNotifier) NotifyPurchase(ctx context.Context, l *domain.Listing, p *domain.Purchase) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchases = append(n.purchases, *p)
	return n.err
}

func validInput(qty int) listings.CreateListingInput {
	return listings.CreateListingInput{
		Title:    "Vegetable soup",
		Price:    4.5,
		Quantity: qty,
		ImageURL: "https://img.example.com/soup.jpg",
	}
}

func setupService(t *testing.T) (*listings.Service, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	return &listings.Service{Store: mem}, mem
}

func TestCreateListing_NoExpiryAndNoEstimator(t *testing.T) {
	svc, _ := setupService(t)
	l, err := svc.CreateListing(context.Background(), "seller-1", validInput(3))
	require.NoError(t, err)
	assert.Nil(t, l.ExpiresOn)
	assert.Equal(t, "seller-1", l.SellerID)
	assert.Equal(t, 3, l.Quantity)
	assert.NotEqual(t, uuid.Nil, l.ID)
}

func TestCreateListing_UsesResolvedExpiry(t *testing.T) {
	svc, _ := setupService(t)
	d := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	r := &countingResolver{result: &d}
	svc.Resolver = r

	l, err := svc.CreateListing(context.Background(), "seller-1", validInput(3))
	require.NoError(t, err)
	require.NotNil(t, l.ExpiresOn)
	assert.Equal(t, d, time.Time(*l.ExpiresOn))
	assert.Equal(t, 1, r.calls)
}

func TestCreateListing_ExplicitExpiryNeverCallsResolver(t *testing.T) {
	svc, _ := setupService(t)
	r := &countingResolver{}
	svc.Resolver = r

	explicit := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	in := validInput(3)
	in.ExpiresOn = &explicit
	l, err := svc.CreateListing(context.Background(), "seller-1", in)
	require.NoError(t, err)
	require.NotNil(t, l.ExpiresOn)
	assert.Equal(t, explicit, time.Time(*l.ExpiresOn))
	assert.Equal(t, 0, r.calls)
}

func TestCreateListing_ValidationErrors(t *testing.T) {
	svc, _ := setupService(t)
	cases := map[string]func(*listings.CreateListingInput){
		"missing title":  func(in *listings.CreateListingInput) { in.Title = "" },
		"zero price":     func(in *listings.CreateListingInput) { in.Price = 0 },
		"zero quantity":  func(in *listings.CreateListingInput) { in.Quantity = 0 },
		"bad image url":  func(in *listings.CreateListingInput) { in.ImageURL = "not a url" },
		"negative price": func(in *listings.CreateListingInput) { in.Price = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput(2)
			mutate(&in)
			_, err := svc.CreateListing(context.Background(), "seller-1", in)
			assert.ErrorIs(t, err, validation.ErrInvalid)
		})
	}
}

func TestCreateListing_SingleCharacterTitle(t *testing.T) {
	svc, _ := setupService(t)
	in := validInput(1)
	in.Title = "X"
	l, err := svc.CreateListing(context.Background(), "seller-1", in)
	require.NoError(t, err)
	assert.Equal(t, "X", l.Title)
}

func TestCreateListing_StoreFailure(t *testing.T) {
	svc := &listings.Service{Store: failingInsertStore{store.NewMemoryStore()}}
	_, err := svc.CreateListing(context.Background(), "seller-1", validInput(2))
	assert.ErrorIs(t, err, listings.ErrListingCreateFailed)
}

func TestService_NoStoreIsUnavailable(t *testing.T) {
	svc := &listings.Service{}
	_, err := svc.CreateListing(context.Background(), "seller-1", validInput(2))
	assert.ErrorIs(t, err, listings.ErrStoreUnavailable)
	_, err = svc.PurchaseListing(context.Background(), uuid.New(), "buyer-1", 1)
	assert.ErrorIs(t, err, listings.ErrStoreUnavailable)
	_, err = svc.ListListings(context.Background(), listings.ListFilter{})
	assert.ErrorIs(t, err, listings.ErrStoreUnavailable)
}

func TestPurchaseListing_EndToEnd(t *testing.T) {
	svc, mem := setupService(t)
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, "seller-1", validInput(10))
	require.NoError(t, err)

	p, err := svc.PurchaseListing(ctx, l.ID, "buyer-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Quantity)
	assert.Equal(t, l.ID, p.ListingID)
	assert.Equal(t, "buyer-1", p.BuyerID)

	_, err = svc.PurchaseListing(ctx, l.ID, "buyer-2", 7)
	assert.ErrorIs(t, err, listings.ErrInsufficientStock)

	got, err := svc.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity)

	purchases := mem.Purchases()
	require.Len(t, purchases, 1)
	assert.Equal(t, 4, purchases[0].Quantity)
}

func TestPurchaseListing_RejectionLeavesStateUnchanged(t *testing.T) {
	svc, mem := setupService(t)
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, "seller-1", validInput(2))
	require.NoError(t, err)

	_, err = svc.PurchaseListing(ctx, l.ID, "buyer-1", 3)
	assert.ErrorIs(t, err, listings.ErrInsufficientStock)

	got, _ := svc.GetListing(ctx, l.ID)
	assert.Equal(t, 2, got.Quantity)
	assert.Empty(t, mem.Purchases())
}

func TestPurchaseListing_TwoConcurrentBuyersOneWins(t *testing.T) {
	svc, mem := setupService(t)
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, "seller-1", validInput(5))
	require.NoError(t, err)

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.PurchaseListing(ctx, l.ID, "buyer-"+string(rune('a'+i)), 3)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if errors.Is(err, listings.ErrInsufficientStock) {
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	got, _ := svc.GetListing(ctx, l.ID)
	assert.Equal(t, 2, got.Quantity)
	assert.Len(t, mem.Purchases(), 1)
}

func TestPurchaseListing_InvalidQuantity(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, "seller-1", validInput(5))
	require.NoError(t, err)

	for _, q := range []int{0, -1} {
		_, err := svc.PurchaseListing(ctx, l.ID, "buyer-1", q)
		assert.ErrorIs(t, err, listings.ErrInvalidQuantity)
	}
	got, _ := svc.GetListing(ctx, l.ID)
	assert.Equal(t, 5, got.Quantity)
}

func TestPurchaseListing_UnknownListing(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.PurchaseListing(context.Background(), uuid.New(), "buyer-1", 1)
	assert.ErrorIs(t, err, listings.ErrListingNotFound)
}

func TestPurchaseListing_SellerCannotBuyOwnListing(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, "seller-1", validInput(5))
	require.NoError(t, err)

	_, err = svc.PurchaseListing(ctx, l.ID, "seller-1", 1)
	assert.ErrorIs(t, err, listings.ErrSelfPurchase)
	got, _ := svc.GetListing(ctx, l.ID)
	assert.Equal(t, 5, got.Quantity)
}

func TestPurchaseListing_RecordFailureKeepsDecrement(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := &listings.Service{Store: failingPurchaseStore{mem}}
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, "seller-1", validInput(5))
	require.NoError(t, err)

	_, err = svc.PurchaseListing(ctx, l.ID, "buyer-1", 2)
	assert.ErrorIs(t, err, listings.ErrPurchaseRecordFailed)

	got, err := mem.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.Empty(t, mem.Purchases())

	var types []string
	for _, e := range mem.Events(l.ID) {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, domain.ListingEventRecordFailed)
}

func TestPurchaseListing_NotifierFailureDoesNotFailPurchase(t *testing.T) {
	svc, mem := setupService(t)
	n := &recordingNotifier{err: errors.New("smtp down")}
	svc.Notifier = n
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, "seller-1", validInput(5))
	require.NoError(t, err)

	p, err := svc.PurchaseListing(ctx, l.ID, "buyer-1", 1)
	require.NoError(t, err)
	require.Len(t, n.purchases, 1)
	assert.Equal(t, p.ID, n.purchases[0].ID)
	assert.Len(t, mem.Purchases(), 1)
}

func TestListListings_NewestFirstAndStatusFilter(t *testing.T) {
	mem := store.NewMemoryStore()
	clock := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	mem.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	svc := &listings.Service{Store: mem}
	ctx := context.Background()

	first, err := svc.CreateListing(ctx, "seller-1", validInput(1))
	require.NoError(t, err)
	second, err := svc.CreateListing(ctx, "seller-1", validInput(1))
	require.NoError(t, err)

	all, err := svc.ListListings(ctx, listings.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	_, err = svc.PurchaseListing(ctx, first.ID, "buyer-1", 1)
	require.NoError(t, err)
	soldOut, err := svc.ListListings(ctx, listings.ListFilter{Status: domain.ListingStatusSoldOut})
	require.NoError(t, err)
	require.Len(t, soldOut, 1)
	assert.Equal(t, first.ID, soldOut[0].ID)

	_, err = svc.ListListings(ctx, listings.ListFilter{Status: "deleted"})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}
