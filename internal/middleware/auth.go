package middleware

import (
	"savemyfoods-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// Principal is the authenticated caller as stored in the session.
type Principal struct {
	UserID   string
	Email    string
	Fullname string
}

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := CurrentPrincipal(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", p)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentPrincipal reads the session user. A user without user_id is treated as anonymous.
func CurrentPrincipal(c *fiber.Ctx) (*Principal, bool) {
	if p, ok := c.Locals("auth").(*Principal); ok && p != nil {
		return p, true
	}
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return nil, false
	}
	id, _ := m["user_id"].(string)
	if id == "" {
		return nil, false
	}
	email, _ := m["email"].(string)
	name, _ := m["fullname"].(string)
	return &Principal{UserID: id, Email: email, Fullname: name}, true
}
