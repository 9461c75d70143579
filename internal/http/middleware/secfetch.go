// Package middleware holds the site's request guards.
package middleware

import (
	"slices"

	"github.com/gofiber/fiber/v2"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
)

// SameOriginValues are the Sec-Fetch-Site values sent by the site's own pages.
var SameOriginValues = []string{"same-origin", "none"}

// RequireSecFetchSite rejects requests using one of methods that carry no
// Sec-Fetch-Site header. Browsers always send it; scripts and servers usually
// don't.
func RequireSecFetchSite(methods ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if slices.Contains(methods, c.Method()) && c.Get("Sec-Fetch-Site") == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}
		return c.Next()
	}
}

// SameOriginOnly limits POST requests to browser traffic from the site itself.
func SameOriginOnly() []fiber.Handler {
	return []fiber.Handler{
		RequireSecFetchSite(fiber.MethodPost),
		cartridgemiddleware.SecFetchSiteMiddleware(cartridgemiddleware.SecFetchSiteConfig{
			AllowedValues: SameOriginValues,
			Methods:       []string{fiber.MethodPost},
		}),
	}
}
