package uploads

import (
	"errors"

	uploadsvc "savemyfoods-backend/internal/application/uploads"
	"savemyfoods-backend/internal/middleware"
	"savemyfoods-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// UploadProductImage POST /api/v1/uploads/product-image
func (h *Handlers) UploadProductImage(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}

	res, err := h.Service.ProductImageUploadURL(c.UserContext(), p.UserID, req.FileName)
	switch {
	case err == nil:
		return response.Success(c, "Upload URL generated", res, nil)
	case errors.Is(err, uploadsvc.ErrInvalidFileName):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, uploadsvc.ErrNotConfigured):
		return response.Unavailable(c, err.Error())
	}
	log.Error().Err(err).Str("user_id", p.UserID).Msg("upload: failed to generate signed URL")
	return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
}
