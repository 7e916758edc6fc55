package notifications

import (
	"crypto/subtle"
	"errors"

	notifsvc "savemyfoods-backend/internal/application/notifications"
	"savemyfoods-backend/internal/middleware"
	"savemyfoods-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const cronSecretHeader = "x-cron-secret"

type Handlers struct {
	Service    *notifsvc.Service
	CronSecret string
}

type markRequest struct {
	Read *bool `json:"read"`
}

// List GET /api/v1/notifications?unread=true
func (h *Handlers) List(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	items, err := h.Service.ListForUser(c.UserContext(), p.UserID, c.QueryBool("unread", false))
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Notifications fetched successfully", items, fiber.Map{"count": len(items)})
}

// Mark PATCH /api/v1/notifications/:id  body {"read": bool}, default true
func (h *Handlers) Mark(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, notifsvc.ErrNotificationNotFound.Error())
	}
	var req markRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
		}
	}
	read := true
	if req.Read != nil {
		read = *req.Read
	}

	n, err := h.Service.MarkRead(c.UserContext(), p.UserID, id, read)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Notification updated", n, nil)
}

// SweepExpiring POST /api/v1/notifications/expiring, called by the scheduler.
func (h *Handlers) SweepExpiring(c *fiber.Ctx) error {
	got := c.Get(cronSecretHeader)
	if h.CronSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.CronSecret)) != 1 {
		return response.Forbidden(c, "Forbidden")
	}
	res, err := h.Service.SweepExpiring(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Expiry sweep completed", res, nil)
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, notifsvc.ErrNotificationNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, notifsvc.ErrUnavailable):
		return response.Unavailable(c, err.Error())
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("notifications: request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
