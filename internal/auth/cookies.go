package auth

import (
	"time"

	"dreamscope/internal/config"

	"github.com/gofiber/fiber/v2"
)

// SetAuthCookies writes the credential pair as HttpOnly cookies on the response.
func SetAuthCookies(c *fiber.Ctx, cfg *config.Config, access, refresh string) {
	now := time.Now()

	c.Cookie(&fiber.Cookie{
		Name:     cfg.AccessCookieName,
		Value:    access,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		Expires:  now.Add(cfg.AccessTokenTTL()),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
	})
	c.Cookie(&fiber.Cookie{
		Name:     cfg.RefreshCookieName,
		Value:    refresh,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		Expires:  now.Add(cfg.RefreshTokenTTL()),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
	})
}

// ClearAuthCookies removes both credential cookies from the client.
func ClearAuthCookies(c *fiber.Ctx, cfg *config.Config) {
	expired := time.Now().Add(-time.Hour)

	for _, name := range []string{cfg.AccessCookieName, cfg.RefreshCookieName} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cfg.CookieDomain,
			Expires:  expired,
			HTTPOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
		})
	}
}
