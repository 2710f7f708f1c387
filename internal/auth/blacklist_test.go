package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/domain"
)

// failingBackend simulates an unreachable cache backend.
type failingBackend struct{}

var errBackendDown = errors.New("backend down")

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errBackendDown
}
func (failingBackend) Set(context.Context, string, string, time.Duration) error {
	return errBackendDown
}
func (failingBackend) Delete(context.Context, string) error        { return errBackendDown }
func (failingBackend) Exists(context.Context, string) (bool, error) { return false, errBackendDown }
func (failingBackend) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errBackendDown
}
func (failingBackend) Close() error                     { return nil }
func (failingBackend) HealthCheck(context.Context) bool { return false }

func TestBlacklistAddAndCheck(t *testing.T) {
	bl := NewBlacklist(cache.NewMemoryBackend(100), false, zap.NewNop())
	ctx := context.Background()

	assert.False(t, bl.IsBlacklisted(ctx, "jti-1"))

	require.NoError(t, bl.Add(ctx, "jti-1", time.Minute))
	assert.True(t, bl.IsBlacklisted(ctx, "jti-1"))
	assert.False(t, bl.IsBlacklisted(ctx, "jti-2"))
}

func TestBlacklistAddIsIdempotent(t *testing.T) {
	bl := NewBlacklist(cache.NewMemoryBackend(100), false, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "jti-1", time.Minute))
	require.NoError(t, bl.Add(ctx, "jti-1", time.Minute))
	assert.True(t, bl.IsBlacklisted(ctx, "jti-1"))
}

func TestBlacklistClampsTinyTTL(t *testing.T) {
	bl := NewBlacklist(cache.NewMemoryBackend(100), false, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "jti-1", 0))
	assert.True(t, bl.IsBlacklisted(ctx, "jti-1"))
}

func TestBlacklistFailurePolicy(t *testing.T) {
	ctx := context.Background()

	failOpen := NewBlacklist(failingBackend{}, false, zap.NewNop())
	assert.False(t, failOpen.IsBlacklisted(ctx, "jti-1"),
		"outside production an unreachable backend fails open")

	failClosed := NewBlacklist(failingBackend{}, true, zap.NewNop())
	assert.True(t, failClosed.IsBlacklisted(ctx, "jti-1"),
		"production treats an unreachable backend as revoked")
}

func TestBlacklistToken(t *testing.T) {
	tm := newTestTokenManager()
	bl := NewBlacklist(cache.NewMemoryBackend(100), false, zap.NewNop())
	ctx := context.Background()

	access, _, err := tm.CreateAccessToken("user-1", "a@x.com", domain.TierFree)
	require.NoError(t, err)

	assert.True(t, BlacklistToken(ctx, tm, bl, access))
	assert.True(t, bl.IsBlacklisted(ctx, TokenID(access)))
}

func TestBlacklistTokenAcceptsRefreshTokens(t *testing.T) {
	tm := newTestTokenManager()
	bl := NewBlacklist(cache.NewMemoryBackend(100), false, zap.NewNop())
	ctx := context.Background()

	refresh, _, err := tm.CreateRefreshToken("user-1", "a@x.com", domain.TierFree)
	require.NoError(t, err)

	assert.True(t, BlacklistToken(ctx, tm, bl, refresh))
	assert.True(t, bl.IsBlacklisted(ctx, TokenID(refresh)))
}

func TestBlacklistTokenRejectsGarbage(t *testing.T) {
	tm := newTestTokenManager()
	bl := NewBlacklist(cache.NewMemoryBackend(100), false, zap.NewNop())

	assert.False(t, BlacklistToken(context.Background(), tm, bl, "not-a-token"))
}

func TestBlacklistTokenSurvivesStoreFailure(t *testing.T) {
	tm := newTestTokenManager()
	bl := NewBlacklist(failingBackend{}, false, zap.NewNop())

	access, _, err := tm.CreateAccessToken("user-1", "a@x.com", domain.TierFree)
	require.NoError(t, err)

	// Returns false instead of failing the request.
	assert.False(t, BlacklistToken(context.Background(), tm, bl, access))
}
