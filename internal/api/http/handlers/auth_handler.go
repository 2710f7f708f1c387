package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gtmhq/gtm-advisor/internal/api/dto"
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/service"
)

// AuthHandler exposes account and token endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, password required")
	}

	user, pair, err := h.auth.Register(c.Context(), req.Email, req.Name, req.CompanyName, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.UserResponse{
				ID:          user.ID,
				Email:       user.Email,
				Name:        user.Name,
				CompanyName: user.CompanyName,
				Tier:        string(user.Tier),
			},
			"auth": tokenPairResponse(pair),
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, pair, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.UserResponse{
				ID:          user.ID,
				Email:       user.Email,
				Name:        user.Name,
				CompanyName: user.CompanyName,
				Tier:        string(user.Tier),
			},
			"auth": tokenPairResponse(pair),
		},
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return fiber.NewError(http.StatusBadRequest, "refresh_token required")
	}

	pair, err := h.auth.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"auth": tokenPairResponse(pair)}})
}

// Logout handles POST /auth/logout: revokes the bearer token. Always 200 for
// authenticated callers, even when revocation bookkeeping fails.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		h.auth.Logout(c.Context(), parts[1])
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(fiber.Map{
		"data": dto.UserResponse{
			ID:          identity.UserID,
			Email:       identity.Email,
			Name:        identity.Name,
			CompanyName: identity.CompanyName,
			Tier:        string(identity.Tier),
		},
	})
}

func tokenPairResponse(pair *service.TokenPair) dto.TokenPairResponse {
	return dto.TokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}
