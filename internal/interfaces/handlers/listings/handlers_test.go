package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	listsvc "savemyfoods-backend/internal/application/listings"
	"savemyfoods-backend/internal/domain"
	"savemyfoods-backend/internal/infrastructure/store"
	"savemyfoods-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  struct {
		Message    string                 `json:"message"`
		StatusCode int                    `json:"statusCode"`
		Details    map[string]interface{} `json:"details"`
	} `json:"error"`
}

type brokenPurchaseStore struct {
	*store.MemoryStore
}

func (b brokenPurchaseStore) InsertPurchase(ctx context.Context, p *domain.Purchase) error {
	return errors.New("connection reset by peer")
}

func setupApp(t *testing.T, st listsvc.Store) *fiber.App {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	for sid, user := range map[string]string{"sid-seller": "seller-1", "sid-buyer": "buyer-1", "sid-buyer2": "buyer-2"} {
		b, _ := json.Marshal(map[string]interface{}{"user": map[string]interface{}{"user_id": user, "email": user + "@example.com"}})
		require.NoError(t, rdb.Set(context.Background(), middleware.SessionRedisPrefix+sid, b, 0).Err())
	}

	svc := &listsvc.Service{}
	if st != nil {
		svc.Store = st
	}
	h := &Handlers{Service: svc}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(middleware.Session(rdb, middleware.SessionConfig{}))
	app.Get("/listings", h.ListListings)
	app.Get("/listings/:listing_id", h.GetListing)
	app.Post("/listings", middleware.RequireAuth(), h.CreateListing)
	app.Post("/listings/:listing_id/purchase", middleware.RequireAuth(), h.PurchaseListing)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, sid string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "s:" + sid})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func createListing(t *testing.T, app *fiber.App, qty int) domain.Listing {
	code, env := do(t, app, "POST", "/listings", "sid-seller", map[string]interface{}{
		"title":      "Leftover bagels",
		"price":      2.5,
		"quantity":   qty,
		"image_url":  "https://img.example.com/bagels.jpg",
		"expires_on": "2026-10-22",
	})
	require.Equal(t, fiber.StatusCreated, code, env.Error.Message)
	var l domain.Listing
	require.NoError(t, json.Unmarshal(env.Data, &l))
	return l
}

func TestCreateListing_RequiresSession(t *testing.T) {
	app := setupApp(t, store.NewMemoryStore())
	code, _ := do(t, app, "POST", "/listings", "", map[string]interface{}{"title": "x"})
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestCreateListing_Created(t *testing.T) {
	app := setupApp(t, store.NewMemoryStore())
	l := createListing(t, app, 10)
	assert.Equal(t, "seller-1", l.SellerID)
	assert.Equal(t, 10, l.Quantity)
	assert.Equal(t, domain.ListingStatusActive, l.Status)
	require.NotNil(t, l.ExpiresOn)
}

func TestCreateListing_ValidationError(t *testing.T) {
	app := setupApp(t, store.NewMemoryStore())
	code, env := do(t, app, "POST", "/listings", "sid-seller", map[string]interface{}{
		"title":     "Soup",
		"price":     3,
		"quantity":  0,
		"image_url": "https://img.example.com/soup.jpg",
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "quantity", env.Error.Details["field"])

	code, _ = do(t, app, "POST", "/listings", "sid-seller", map[string]interface{}{
		"title":      "Soup",
		"price":      3,
		"quantity":   1,
		"image_url":  "https://img.example.com/soup.jpg",
		"expires_on": "next tuesday",
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestPurchase_EndToEnd(t *testing.T) {
	app := setupApp(t, store.NewMemoryStore())
	l := createListing(t, app, 10)
	path := "/listings/" + l.ID.String() + "/purchase"

	code, env := do(t, app, "POST", path, "sid-buyer", map[string]interface{}{"quantity": 4})
	require.Equal(t, fiber.StatusOK, code, env.Error.Message)
	var p domain.Purchase
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 4, p.Quantity)
	assert.Equal(t, "buyer-1", p.BuyerID)

	code, env = do(t, app, "POST", path, "sid-buyer2", map[string]interface{}{"quantity": 7})
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "Insufficient stock for purchase", env.Error.Message)

	code, env = do(t, app, "GET", "/listings/"+l.ID.String(), "", nil)
	require.Equal(t, fiber.StatusOK, code)
	var got domain.Listing
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 6, got.Quantity)
}

func TestPurchase_ErrorMapping(t *testing.T) {
	app := setupApp(t, store.NewMemoryStore())
	l := createListing(t, app, 3)
	path := "/listings/" + l.ID.String() + "/purchase"

	code, _ := do(t, app, "POST", path, "sid-buyer", map[string]interface{}{"quantity": 0})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "POST", path, "sid-seller", map[string]interface{}{"quantity": 1})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "POST", "/listings/not-a-uuid/purchase", "sid-buyer", map[string]interface{}{"quantity": 1})
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = do(t, app, "POST", "/listings/9b2f7a52-1c1e-4c8f-9a59-6f0f1f0d2b11/purchase", "sid-buyer", map[string]interface{}{"quantity": 1})
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = do(t, app, "POST", path, "", map[string]interface{}{"quantity": 1})
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestPurchase_RecordFailureIs400(t *testing.T) {
	mem := store.NewMemoryStore()
	app := setupApp(t, brokenPurchaseStore{mem})
	l := createListing(t, app, 5)

	code, env := do(t, app, "POST", "/listings/"+l.ID.String()+"/purchase", "sid-buyer", map[string]interface{}{"quantity": 2})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Unable to record purchase", env.Error.Message)

	got, err := mem.GetListing(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
}

func TestListListings_StatusFilter(t *testing.T) {
	app := setupApp(t, store.NewMemoryStore())
	l := createListing(t, app, 1)
	createListing(t, app, 5)
	code, _ := do(t, app, "POST", "/listings/"+l.ID.String()+"/purchase", "sid-buyer", map[string]interface{}{"quantity": 1})
	require.Equal(t, fiber.StatusOK, code)

	code, env := do(t, app, "GET", "/listings?status=sold_out", "", nil)
	require.Equal(t, fiber.StatusOK, code)
	var items []domain.Listing
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, l.ID, items[0].ID)

	code, _ = do(t, app, "GET", "/listings?status=bogus", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestStoreUnavailable(t *testing.T) {
	app := setupApp(t, nil)
	code, _ := do(t, app, "GET", "/listings", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	code, _ = do(t, app, "POST", "/listings", "sid-seller", map[string]interface{}{
		"title": "Soup", "price": 3, "quantity": 1, "image_url": "https://img.example.com/soup.jpg",
	})
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
}

func TestParseExpiresOn(t *testing.T) {
	s := "2026-10-22T18:30:00+02:00"
	got, err := parseExpiresOn(&s)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-22", got.Format("2006-01-02"))

	empty := " "
	got, err = parseExpiresOn(&empty)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
