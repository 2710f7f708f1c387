package auth

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/domain"
)

const (
	userKeyPrefix = "gtm:user:"
	userCacheTTL  = 15 * time.Minute
)

// CachedUser is a denormalized, non-PII snapshot of a user for authorization
// decisions. It never carries the email or the password hash. An entry with
// Active=false is the inactive marker: it lets repeated requests from a
// deactivated user's still-valid token be rejected without a database hit.
type CachedUser struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	CompanyName       string      `json:"company_name"`
	Tier              domain.Tier `json:"tier"`
	Active            bool        `json:"active"`
	DailyRequestCount int         `json:"daily_request_count"`
	LastRequestDate   string      `json:"last_request_date,omitempty"`
}

// UserCache wraps the cache backend with JSON serialization for user records.
type UserCache struct {
	backend cache.Backend
	logger  *zap.Logger
}

// NewUserCache builds the cache wrapper.
func NewUserCache(backend cache.Backend, logger *zap.Logger) *UserCache {
	return &UserCache{backend: backend, logger: logger}
}

// Get returns the cached record for a user id. Malformed cached JSON counts
// as a miss and the corrupt entry is deleted.
func (c *UserCache) Get(ctx context.Context, userID string) (*CachedUser, bool) {
	raw, found, err := c.backend.Get(ctx, userKeyPrefix+userID)
	if err != nil {
		c.logger.Warn("user cache read failed", zap.Error(err), zap.String("user_id", userID))
		return nil, false
	}
	if !found {
		return nil, false
	}

	var record CachedUser
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		c.logger.Warn("corrupt user cache entry, evicting", zap.String("user_id", userID))
		_ = c.backend.Delete(ctx, userKeyPrefix+userID)
		return nil, false
	}
	return &record, true
}

// Set stores a snapshot. Caching is a performance optimization, never a
// correctness dependency: failures are logged and swallowed.
func (c *UserCache) Set(ctx context.Context, record *CachedUser) {
	raw, err := json.Marshal(record)
	if err != nil {
		c.logger.Warn("failed to marshal user cache entry", zap.Error(err))
		return
	}
	if err := c.backend.Set(ctx, userKeyPrefix+record.ID, string(raw), userCacheTTL); err != nil {
		c.logger.Warn("user cache write failed", zap.Error(err), zap.String("user_id", record.ID))
	}
}

// SetInactive writes the inactive marker for a user id.
func (c *UserCache) SetInactive(ctx context.Context, userID string) {
	c.Set(ctx, &CachedUser{ID: userID, Active: false})
}

// Invalidate evicts the entry. Call whenever authorization-relevant user
// state changes, such as a tier change or deactivation.
func (c *UserCache) Invalidate(ctx context.Context, userID string) {
	if err := c.backend.Delete(ctx, userKeyPrefix+userID); err != nil {
		c.logger.Warn("user cache invalidation failed", zap.Error(err), zap.String("user_id", userID))
	}
}

// Snapshot converts a domain user into its cacheable form.
func Snapshot(user *domain.User) *CachedUser {
	record := &CachedUser{
		ID:                user.ID,
		Name:              user.Name,
		CompanyName:       user.CompanyName,
		Tier:              user.Tier,
		Active:            user.Active,
		DailyRequestCount: user.DailyRequestCount,
	}
	if user.LastRequestDate != nil {
		record.LastRequestDate = user.LastRequestDate.Format("2006-01-02")
	}
	return record
}
