package listingevents

import (
	"errors"

	lesvc "savemyfoods-backend/internal/application/listingevents"
	listsvc "savemyfoods-backend/internal/application/listings"
	"savemyfoods-backend/internal/middleware"
	"savemyfoods-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *lesvc.Service
}

// ListForListing GET /api/v1/listings/:listing_id/events
func (h *Handlers) ListForListing(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.NotFound(c, listsvc.ErrListingNotFound.Error())
	}

	events, err := h.Service.ListForListing(c.UserContext(), id, p.UserID)
	switch {
	case err == nil:
		return response.Success(c, "Listing events fetched successfully", fiber.Map{"events": events}, nil)
	case errors.Is(err, listsvc.ErrListingNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, lesvc.ErrForbidden):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, listsvc.ErrStoreUnavailable):
		return response.Unavailable(c, err.Error())
	}
	log.Error().Err(err).Str("listing_id", id.String()).Msg("listing events: fetch failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
