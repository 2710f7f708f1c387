package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/repository"
)

const identityKey = "auth_identity"

// Identity represents the authenticated caller. The email comes from the
// token claim, everything else from the cached snapshot or the database.
type Identity struct {
	UserID            string
	Email             string
	Name              string
	CompanyName       string
	Tier              domain.Tier
	DailyRequestCount int
}

// Middleware resolves a request identity through a layered trust model:
// token signature, then revocation, then the cached authorization snapshot,
// then the database. Any stage failing degrades toward anonymous rather than
// an error; authorization decisions happen downstream.
type Middleware struct {
	tokens    *TokenManager
	blacklist *Blacklist
	userCache *UserCache
	users     repository.UserRepository
	logger    *zap.Logger
}

// NewMiddleware constructs the identity resolver.
func NewMiddleware(tokens *TokenManager, blacklist *Blacklist, userCache *UserCache, users repository.UserRepository, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, blacklist: blacklist, userCache: userCache, users: users, logger: logger}
}

// Handle runs on every request and never fails it. Requests without a
// resolvable identity proceed anonymously.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	tokenStr, ok := bearerToken(c)
	if !ok {
		return c.Next()
	}

	ctx := c.Context()
	if m.blacklist.IsBlacklisted(ctx, TokenID(tokenStr)) {
		return c.Next()
	}

	data, err := m.tokens.Decode(tokenStr, domain.TokenTypeAccess)
	if err != nil {
		return c.Next()
	}

	if record, hit := m.userCache.Get(ctx, data.UserID); hit {
		if !record.Active {
			return c.Next()
		}
		c.Locals(identityKey, &Identity{
			UserID:            record.ID,
			Email:             data.Email,
			Name:              record.Name,
			CompanyName:       record.CompanyName,
			Tier:              record.Tier,
			DailyRequestCount: record.DailyRequestCount,
		})
		return c.Next()
	}

	user, err := m.users.GetByID(ctx, data.UserID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			m.logger.Error("identity lookup failed, treating as anonymous",
				zap.Error(err), zap.String("user_id", data.UserID))
		}
		return c.Next()
	}
	if !user.Active {
		m.userCache.SetInactive(ctx, user.ID)
		return c.Next()
	}

	m.userCache.Set(ctx, Snapshot(user))
	c.Locals(identityKey, &Identity{
		UserID:            user.ID,
		Email:             data.Email,
		Name:              user.Name,
		CompanyName:       user.CompanyName,
		Tier:              user.Tier,
		DailyRequestCount: user.DailyRequestCount,
	})
	return c.Next()
}

// IdentityFromContext retrieves the resolved identity, if any.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
