package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/domain"
)

const blacklistKeyPrefix = "gtm:blacklist:"

// Blacklist tracks revoked token identifiers on the cache backend. Entries
// carry the token's remaining lifetime as TTL, so the store is bounded by the
// number of currently-valid-but-revoked tokens.
type Blacklist struct {
	backend cache.Backend
	// failClosed controls behavior when the backend is unreachable:
	// production treats the token as blacklisted, everywhere else the check
	// fails open. The flag is fixed at construction to keep the
	// security-relevant branch unit-testable.
	failClosed bool
	logger     *zap.Logger
}

// NewBlacklist builds the revocation store.
func NewBlacklist(backend cache.Backend, failClosed bool, logger *zap.Logger) *Blacklist {
	return &Blacklist{backend: backend, failClosed: failClosed, logger: logger}
}

// Add records a revoked JTI for ttl. Adding an already-present JTI is a no-op.
func (b *Blacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	return b.backend.Set(ctx, blacklistKeyPrefix+jti, "1", ttl)
}

// IsBlacklisted reports whether the JTI has been revoked. Backend failures
// resolve per the fail-open/fail-closed policy.
func (b *Blacklist) IsBlacklisted(ctx context.Context, jti string) bool {
	exists, err := b.backend.Exists(ctx, blacklistKeyPrefix+jti)
	if err != nil {
		b.logger.Error("blacklist check failed", zap.Error(err), zap.Bool("fail_closed", b.failClosed))
		return b.failClosed
	}
	return exists
}

// BlacklistToken revokes a token for its remaining lifetime. It returns false
// when the token decodes as neither access nor refresh, or when the store is
// unavailable: logout must never fail the request over revocation bookkeeping.
func BlacklistToken(ctx context.Context, tm *TokenManager, bl *Blacklist, tokenStr string) bool {
	data, err := tm.Decode(tokenStr, domain.TokenTypeAccess)
	if err != nil {
		data, err = tm.Decode(tokenStr, domain.TokenTypeRefresh)
	}
	if err != nil {
		return false
	}

	jti := data.JTI
	if jti == "" {
		jti = TokenID(tokenStr)
	}
	ttl := time.Until(data.ExpiresAt)
	if err := bl.Add(ctx, jti, ttl); err != nil {
		bl.logger.Warn("failed to record token revocation", zap.Error(err))
		return false
	}
	return true
}
