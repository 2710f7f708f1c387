package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/domain"
)

func TestUserCacheRoundTrip(t *testing.T) {
	backend := cache.NewMemoryBackend(100)
	uc := NewUserCache(backend, zap.NewNop())
	ctx := context.Background()

	uc.Set(ctx, &CachedUser{
		ID:          "user-1",
		Name:        "Ada",
		CompanyName: "Initech",
		Tier:        domain.Tier1,
		Active:      true,
	})

	record, hit := uc.Get(ctx, "user-1")
	require.True(t, hit)
	assert.Equal(t, "Ada", record.Name)
	assert.Equal(t, domain.Tier1, record.Tier)
	assert.True(t, record.Active)

	_, hit = uc.Get(ctx, "user-2")
	assert.False(t, hit)
}

func TestUserCacheEvictsCorruptEntries(t *testing.T) {
	backend := cache.NewMemoryBackend(100)
	uc := NewUserCache(backend, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "gtm:user:user-1", "{not json", time.Minute))

	_, hit := uc.Get(ctx, "user-1")
	assert.False(t, hit, "corrupt entries count as misses")

	_, found, err := backend.Get(ctx, "gtm:user:user-1")
	require.NoError(t, err)
	assert.False(t, found, "corrupt entry must be deleted")
}

func TestUserCacheInactiveMarker(t *testing.T) {
	backend := cache.NewMemoryBackend(100)
	uc := NewUserCache(backend, zap.NewNop())
	ctx := context.Background()

	uc.SetInactive(ctx, "user-1")

	record, hit := uc.Get(ctx, "user-1")
	require.True(t, hit)
	assert.False(t, record.Active)
}

func TestUserCacheInvalidate(t *testing.T) {
	backend := cache.NewMemoryBackend(100)
	uc := NewUserCache(backend, zap.NewNop())
	ctx := context.Background()

	uc.Set(ctx, &CachedUser{ID: "user-1", Active: true})
	uc.Invalidate(ctx, "user-1")

	_, hit := uc.Get(ctx, "user-1")
	assert.False(t, hit)
}

func TestUserCacheSwallowsBackendFailures(t *testing.T) {
	uc := NewUserCache(failingBackend{}, zap.NewNop())
	ctx := context.Background()

	// None of these may panic or propagate the backend error.
	uc.Set(ctx, &CachedUser{ID: "user-1", Active: true})
	uc.Invalidate(ctx, "user-1")
	_, hit := uc.Get(ctx, "user-1")
	assert.False(t, hit)
}

func TestSnapshotCarriesNoPII(t *testing.T) {
	now := time.Now()
	user := &domain.User{
		ID:              "user-1",
		Email:           "a@x.com",
		Name:            "Ada",
		CompanyName:     "Initech",
		PasswordHash:    "$2a$10$secret",
		Tier:            domain.Tier2,
		Active:          true,
		LastRequestDate: &now,
	}

	raw, err := json.Marshal(Snapshot(user))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "a@x.com")
	assert.NotContains(t, string(raw), "secret")
}
