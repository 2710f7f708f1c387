package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/config"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/repository"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

// TokenPair bundles the tokens handed to clients at login and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthService coordinates registration, login, refresh and logout flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	blacklist  *auth.Blacklist
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, blacklist *auth.Blacklist, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL()),
		blacklist:  blacklist,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Register creates a new account on the free tier.
func (s *AuthService) Register(ctx context.Context, email, name, companyName, password string) (*domain.User, *TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, util.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		CompanyName:  companyName,
		PasswordHash: hash,
		Tier:         domain.TierFree,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login authenticates by email and password. Unknown user and wrong password
// surface identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, util.NewUnauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, util.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, util.NewUnauthorized("invalid credentials")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh mints a new token pair from a valid, unrevoked refresh token. The
// tier baked into the new tokens is re-read from the database so upgrades
// propagate at the next refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	data, err := s.tokens.Decode(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, util.NewUnauthorized("invalid refresh token")
	}
	if s.blacklist.IsBlacklisted(ctx, auth.TokenID(refreshToken)) {
		return nil, util.NewUnauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}
	if !user.Active {
		return nil, util.NewUnauthorized("invalid refresh token")
	}

	return s.issuePair(user)
}

// Logout revokes the presented token. Revocation bookkeeping failures are
// logged but never fail the request.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if !auth.BlacklistToken(ctx, s.tokens, s.blacklist, token) {
		s.logger.Debug("logout token could not be revoked")
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) issuePair(user *domain.User) (*TokenPair, error) {
	access, accessExp, err := s.tokens.CreateAccessToken(user.ID, user.Email, user.Tier)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.CreateRefreshToken(user.ID, user.Email, user.Tier)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
