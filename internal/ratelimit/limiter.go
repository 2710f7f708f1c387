package ratelimit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/config"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

const keyPrefix = "gtm:ratelimit:"

// Scope separates ordinary request quotas from the higher-cost analysis
// quotas applied to LLM-backed endpoints.
type Scope string

const (
	ScopeRequest  Scope = "request"
	ScopeAnalysis Scope = "analysis"
)

// Limiter enforces tier-aware fixed-window daily quotas. The quota is
// resolved from the identity's tier on every request, so a tier change takes
// effect on the very next request without reissuing tokens. Identity for
// quota purposes is the authenticated user id, falling back to the caller IP.
type Limiter struct {
	backend cache.Backend
	quotas  config.QuotaConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewLimiter builds the limiter on the shared cache backend. Production
// deployments get the distributed backend by the cache selection policy, so
// counters are shared across instances there.
func NewLimiter(backend cache.Backend, quotas config.QuotaConfig, logger *zap.Logger) *Limiter {
	return &Limiter{backend: backend, quotas: quotas, logger: logger, now: time.Now}
}

// Middleware returns a Fiber handler enforcing the scope's daily quota.
func (l *Limiter) Middleware(scope Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, quota := l.resolve(c, scope)

		now := l.now().UTC()
		windowEnd := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		ttl := windowEnd.Sub(now)

		count, err := l.backend.Increment(c.Context(), key, ttl)
		if err != nil {
			// Quota counters are not part of the security boundary; an
			// unreachable backend lets the request through.
			l.logger.Warn("rate limit counter unavailable", zap.Error(err), zap.String("key", key))
			return c.Next()
		}

		remaining := int64(quota) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(quota))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(quota) {
			retryAfter := int(ttl / time.Second)
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return util.NewRateLimited(retryAfter)
		}
		return c.Next()
	}
}

// resolve builds the counter key and the applicable quota at request time.
func (l *Limiter) resolve(c *fiber.Ctx, scope Scope) (string, int) {
	suffix := ""
	if scope == ScopeAnalysis {
		suffix = ":analysis"
	}

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return keyPrefix + "ip:" + c.IP() + suffix, l.quotas.Anonymous
	}
	return keyPrefix + "user:" + identity.UserID + suffix, l.quotaFor(identity.Tier, scope)
}

func (l *Limiter) quotaFor(tier domain.Tier, scope Scope) int {
	if scope == ScopeAnalysis {
		switch tier {
		case domain.Tier2:
			return l.quotas.AnalysisTier2
		case domain.Tier1:
			return l.quotas.AnalysisTier1
		default:
			return l.quotas.AnalysisFree
		}
	}
	switch tier {
	case domain.Tier2:
		return l.quotas.Tier2
	case domain.Tier1:
		return l.quotas.Tier1
	default:
		return l.quotas.Free
	}
}
