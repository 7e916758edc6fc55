package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// SessionConfig for the Redis-backed session shared with the identity service. A non-empty
// Secret makes the session cookie signature mandatory.
type SessionConfig struct {
	Secret            string
	AllowCrossSiteDev bool
	IsProduction      bool
	CookieDomain      string
}

const (
	SessionCookieName  = "smf.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 24 * time.Hour
)

// SessionUser is the shape stored in session under "user".
type SessionUser struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Session loads the session for the cookie "smf.sid" from Redis key "session:<id>" and
// writes it back after the handler runs. Sessions are issued by the identity service.
func Session(rdb *redis.Client, cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := parseSessionCookie(c.Cookies(SessionCookieName), cfg.Secret)

		var data map[string]interface{}
		if sessionID != "" && rdb != nil {
			b, err := rdb.Get(c.UserContext(), SessionRedisPrefix+sessionID).Bytes()
			if err == nil {
				_ = json.Unmarshal(b, &data)
			}
		}
		if data == nil {
			data = make(map[string]interface{})
		}

		c.Locals("session_data", data)
		c.Locals(userLocal, data["user"])
		c.Locals("session_id", sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		sid, _ := c.Locals("session_id").(string)
		updated, _ := c.Locals("session_data").(map[string]interface{})
		if sid != "" && rdb != nil && len(updated) > 0 {
			b, _ := json.Marshal(updated)
			rdb.Set(context.Background(), SessionRedisPrefix+sid, b, sessionMaxAge)
		}
		return nil
	}
}

// parseSessionCookie returns the session id from "s:id.signature". Without a secret the
// signature is ignored and "s:id" or a bare id is accepted. With one, only a cookie whose
// signature matches is accepted; anything else yields "".
func parseSessionCookie(v, secret string) string {
	if u, err := url.PathUnescape(v); err == nil {
		v = u
	}
	if secret == "" {
		if strings.HasPrefix(v, "s:") {
			return strings.SplitN(v[2:], ".", 2)[0]
		}
		return v
	}
	if !strings.HasPrefix(v, "s:") {
		return ""
	}
	i := strings.LastIndex(v, ".")
	if i <= 2 {
		return ""
	}
	id, sig := v[2:i], v[i+1:]
	if !hmac.Equal([]byte(sig), []byte(signSessionID(id, secret))) {
		return ""
	}
	return id
}

// signSessionID is the cookie-signature scheme used by the identity service:
// unpadded base64 of HMAC-SHA256(secret, id).
func signSessionID(id, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}

// GetSessionID returns the current session ID from context.
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals("session_id").(string)
	return sid
}

// DestroySession clears user and session data from Locals; caller must clear cookie and Redis.
func DestroySession(c *fiber.Ctx) {
	c.Locals("session_data", make(map[string]interface{}))
	c.Locals(userLocal, nil)
	c.Locals("auth", nil)
}

// SessionCookieConfig returns cookie options for SetCookie/ClearCookie.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}
