package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gtmhq/gtm-advisor/internal/domain"
)

// TokenManager handles issuing and validating access and refresh JWTs.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Claims describes the JWT payload shared by both token types.
type Claims struct {
	Email     string           `json:"email"`
	Tier      string           `json:"tier"`
	TokenType domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// CreateAccessToken signs a short-lived access token with a fresh JTI.
func (tm *TokenManager) CreateAccessToken(userID, email string, tier domain.Tier) (string, time.Time, error) {
	return tm.create(userID, email, tier, domain.TokenTypeAccess, tm.accessTTL)
}

// CreateRefreshToken signs a long-lived refresh token with a fresh JTI.
func (tm *TokenManager) CreateRefreshToken(userID, email string, tier domain.Tier) (string, time.Time, error) {
	return tm.create(userID, email, tier, domain.TokenTypeRefresh, tm.refreshTTL)
}

func (tm *TokenManager) create(userID, email string, tier domain.Tier, typ domain.TokenType, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := &Claims{
		Email:     email,
		Tier:      string(tier),
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Decode validates signature, expiry, type discriminator, required claims and
// tier value. It deliberately does not consult the blacklist: decoding is
// pure, revocation checks may involve I/O and are an explicit separate step.
func (tm *TokenManager) Decode(tokenStr string, expectedType domain.TokenType) (*domain.TokenData, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenType != expectedType {
		return nil, errors.New("unexpected token type")
	}
	if claims.Subject == "" || claims.Email == "" || claims.ExpiresAt == nil {
		return nil, errors.New("missing required claims")
	}
	tier, err := domain.ParseTier(claims.Tier)
	if err != nil {
		return nil, err
	}

	return &domain.TokenData{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Tier:      tier,
		Type:      claims.TokenType,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TokenID returns the revocation identifier for a token: the embedded JTI
// when present, otherwise a stable hash of the raw token string so that
// tokens minted before JTI support can still be blacklisted.
func TokenID(tokenStr string) string {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err == nil && claims.ID != "" {
		return claims.ID
	}
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:16])
}
