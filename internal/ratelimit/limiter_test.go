package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/config"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

var testQuotas = config.QuotaConfig{
	Free:          50,
	Tier1:         500,
	Tier2:         5000,
	AnalysisFree:  3,
	AnalysisTier1: 25,
	AnalysisTier2: 200,
	Anonymous:     2,
}

func newTestApp(limiter *Limiter, scope Scope) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			domainErr := util.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
		}
		return nil
	})
	app.Get("/ping", limiter.Middleware(scope), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestLimiterEnforcesAnonymousQuota(t *testing.T) {
	limiter := NewLimiter(cache.NewMemoryBackend(100), testQuotas, zap.NewNop())
	app := newTestApp(limiter, ScopeRequest)

	for i := 0; i < testQuotas.Anonymous; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestLimiterSetsRateHeaders(t *testing.T) {
	limiter := NewLimiter(cache.NewMemoryBackend(100), testQuotas, zap.NewNop())
	app := newTestApp(limiter, ScopeRequest)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))
}

func TestLimiterLetsRequestsThroughOnBackendFailure(t *testing.T) {
	limiter := NewLimiter(downBackend{}, testQuotas, zap.NewNop())
	app := newTestApp(limiter, ScopeRequest)

	for i := 0; i < testQuotas.Anonymous+5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestQuotaResolutionPerTierAndScope(t *testing.T) {
	limiter := NewLimiter(cache.NewMemoryBackend(100), testQuotas, zap.NewNop())

	cases := []struct {
		tier  domain.Tier
		scope Scope
		want  int
	}{
		{domain.TierFree, ScopeRequest, 50},
		{domain.Tier1, ScopeRequest, 500},
		{domain.Tier2, ScopeRequest, 5000},
		{domain.TierFree, ScopeAnalysis, 3},
		{domain.Tier1, ScopeAnalysis, 25},
		{domain.Tier2, ScopeAnalysis, 200},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, limiter.quotaFor(tc.tier, tc.scope),
			"tier %s scope %s", tc.tier, tc.scope)
	}
}

type downBackend struct{}

var errDown = errors.New("backend down")

func (downBackend) Get(context.Context, string) (string, bool, error) { return "", false, errDown }
func (downBackend) Set(context.Context, string, string, time.Duration) error {
	return errDown
}
func (downBackend) Delete(context.Context, string) error         { return errDown }
func (downBackend) Exists(context.Context, string) (bool, error) { return false, errDown }
func (downBackend) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errDown
}
func (downBackend) Close() error                     { return nil }
func (downBackend) HealthCheck(context.Context) bool { return false }
