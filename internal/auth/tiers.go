package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gtmhq/gtm-advisor/internal/domain"
)

// RequireAuth rejects anonymous requests. Blacklisted, expired, malformed
// and inactive-account tokens all resolve to anonymous upstream, so they
// uniformly surface here as 401 without leaking which check failed.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// RequireTier gates a route on a minimum subscription tier. The tier is read
// from the resolved identity, not the token, so tier changes apply on the
// next request.
func RequireTier(min domain.Tier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		if !identity.Tier.AtLeast(min) {
			return fiber.NewError(http.StatusForbidden, "subscription tier too low")
		}
		return c.Next()
	}
}
