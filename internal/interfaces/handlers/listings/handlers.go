package listings

import (
	"errors"
	"strings"
	"time"

	listsvc "savemyfoods-backend/internal/application/listings"
	"savemyfoods-backend/internal/middleware"
	"savemyfoods-backend/internal/pkg/response"
	"savemyfoods-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *listsvc.Service
}

type createListingRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	ImageURL    string  `json:"image_url"`
	Location    *string `json:"location"`
	ExpiresOn   *string `json:"expires_on"`
}

type purchaseRequest struct {
	Quantity int `json:"quantity"`
}

// CreateListing POST /api/v1/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	expiresOn, err := parseExpiresOn(req.ExpiresOn)
	if err != nil {
		return response.Error(c, "expires_on must be a date (YYYY-MM-DD)", fiber.StatusBadRequest, nil)
	}

	listing, err := h.Service.CreateListing(c.UserContext(), p.UserID, listsvc.CreateListingInput{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Location:    req.Location,
		ExpiresOn:   expiresOn,
		SellerEmail: p.Email,
	})
	if err != nil {
		return writeError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// ListListings GET /api/v1/listings?status=active|sold_out&seller_id=
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	items, err := h.Service.ListListings(c.UserContext(), listsvc.ListFilter{
		Status:   c.Query("status"),
		SellerID: c.Query("seller_id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", items, fiber.Map{"count": len(items)})
}

// GetListing GET /api/v1/listings/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.NotFound(c, "Listing not found")
	}
	listing, err := h.Service.GetListing(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// PurchaseListing POST /api/v1/listings/:listing_id/purchase
func (h *Handlers) PurchaseListing(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.NotFound(c, "Listing not found")
	}
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	purchase, err := h.Service.PurchaseListing(c.UserContext(), id, p.UserID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Purchase successful", purchase, nil)
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, listsvc.ErrInsufficientStock):
		return response.Conflict(c, listsvc.ErrInsufficientStock.Error())
	case errors.Is(err, listsvc.ErrListingNotFound):
		return response.NotFound(c, listsvc.ErrListingNotFound.Error())
	case errors.Is(err, listsvc.ErrInvalidQuantity), errors.Is(err, listsvc.ErrSelfPurchase):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, listsvc.ErrListingCreateFailed):
		return response.Error(c, listsvc.ErrListingCreateFailed.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, listsvc.ErrPurchaseRecordFailed):
		return response.Error(c, listsvc.ErrPurchaseRecordFailed.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, listsvc.ErrStoreUnavailable):
		return response.Unavailable(c, listsvc.ErrStoreUnavailable.Error())
	case errors.Is(err, validation.ErrInvalid):
		var verr *validation.Error
		if errors.As(err, &verr) && verr.Field != "" {
			return response.Error(c, verr.Message, fiber.StatusBadRequest, fiber.Map{"field": verr.Field})
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Str("trace_id", middleware.GetTraceID(c)).Msg("listings: unexpected error")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// parseExpiresOn accepts YYYY-MM-DD or an RFC 3339 timestamp; empty means absent.
func parseExpiresOn(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day, nil
}
