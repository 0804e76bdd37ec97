package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "auth-token"

// CookieOptions controls session cookie attributes.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// NewCookieOptions derives cookie policy from the deployment mode.
func NewCookieOptions(production bool, maxAge time.Duration) CookieOptions {
	return CookieOptions{Secure: production, MaxAge: maxAge}
}

func (o CookieOptions) sameSite() string {
	if o.Secure {
		return fiber.CookieSameSiteStrictMode
	}
	return fiber.CookieSameSiteLaxMode
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(c *fiber.Ctx, token string, opts CookieOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		Expires:  time.Now().Add(opts.MaxAge),
		Secure:   opts.Secure,
		HTTPOnly: true,
		SameSite: opts.sameSite(),
	})
}

// ClearSessionCookie overwrites the session cookie with an expired, empty value.
func ClearSessionCookie(c *fiber.Ctx, opts CookieOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   opts.Secure,
		HTTPOnly: true,
		SameSite: opts.sameSite(),
	})
}
