package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"churninsight/dashboard/internal/services"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "session_id"

	sessionKey = "session"
)

// SessionMiddleware resolves the operator session from the X-Session-ID
// header or the session_id cookie and mints a new one when neither holds a
// valid id.
func SessionMiddleware(registry services.SessionRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(SessionHeader)
		if id == "" {
			id = c.Cookies(SessionCookie)
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Set(SessionHeader, id)
		c.Locals(sessionKey, registry.Get(id))
		return c.Next()
	}
}

func sessionFrom(c *fiber.Ctx) *services.Session {
	session, ok := c.Locals(sessionKey).(*services.Session)
	if !ok {
		panic("handlers: session middleware not installed")
	}
	return session
}
