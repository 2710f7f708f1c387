package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gtmhq/gtm-advisor/internal/api/dto"
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/service"
)

// AccountHandler exposes self-service account mutations. Billing is out of
// scope, so tier changes take effect immediately.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// ChangeTier handles PUT /me/tier.
func (h *AccountHandler) ChangeTier(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.TierChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "unknown tier")
	}

	user, err := h.accounts.ChangeTier(c.Context(), identity.UserID, tier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.UserResponse{
			ID:          user.ID,
			Email:       user.Email,
			Name:        user.Name,
			CompanyName: user.CompanyName,
			Tier:        string(user.Tier),
		},
	})
}

// Deactivate handles DELETE /me. The account is disabled, not removed;
// outstanding tokens stop resolving once the cached snapshot is evicted.
func (h *AccountHandler) Deactivate(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	if err := h.accounts.Deactivate(c.Context(), identity.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deactivated": true}})
}
