package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/gtmhq/gtm-advisor/internal/api/http"
	"github.com/gtmhq/gtm-advisor/internal/api/http/handlers"
	"github.com/gtmhq/gtm-advisor/internal/agent"
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/config"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/events"
	"github.com/gtmhq/gtm-advisor/internal/observability"
	"github.com/gtmhq/gtm-advisor/internal/ratelimit"
	"github.com/gtmhq/gtm-advisor/internal/service"
	"github.com/gtmhq/gtm-advisor/internal/worker"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) IncrementUsage(_ context.Context, id string, day time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	date := day.Truncate(24 * time.Hour)
	if user.LastRequestDate != nil && user.LastRequestDate.Equal(date) {
		user.DailyRequestCount++
	} else {
		user.DailyRequestCount = 1
	}
	user.LastRequestDate = &date
	return nil
}

type fakeCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*domain.Company
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{companies: make(map[string]*domain.Company)}
}

func (r *fakeCompanyRepo) Create(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	clone := *company
	r.companies[company.ID] = &clone
	return nil
}

func (r *fakeCompanyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if company, ok := r.companies[id]; ok {
		clone := *company
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCompanyRepo) ListByOwner(_ context.Context, ownerUserID string) ([]*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Company
	for _, company := range r.companies {
		if company.OwnerUserID != nil && *company.OwnerUserID == ownerUserID {
			clone := *company
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.AnalysisJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.AnalysisJob)}
}

func (r *fakeJobRepo) Create(_ context.Context, job *domain.AnalysisJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.CreatedAt = time.Now()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id string) (*domain.AnalysisJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (r *fakeJobRepo) SetStatus(_ context.Context, id string, status domain.AnalysisStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	job.Status = status
	return nil
}

func (r *fakeJobRepo) SetResult(_ context.Context, id string, status domain.AnalysisStatus, result []byte, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	job.Status = status
	job.Result = result
	job.ErrorMessage = errorMessage
	job.FinishedAt = &now
	return nil
}

func (r *fakeJobRepo) MarkOrphans(_ context.Context) (int64, error) {
	return 0, nil
}

type reconAgent struct{}

func (reconAgent) Name() string { return "recon" }

func (reconAgent) Run(_ context.Context, _ string, _ agent.Context) (*agent.Result, error) {
	return &agent.Result{Agent: "recon", Summary: "all clear"}, nil
}

type testEnv struct {
	app       *fiber.App
	users     *fakeUserRepo
	companies *fakeCompanyRepo
	jobs      *fakeJobRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	backend := cache.NewMemoryBackend(1000)
	users := newFakeUserRepo()
	companies := newFakeCompanyRepo()
	jobs := newFakeJobRepo()

	blacklist := auth.NewBlacklist(backend, false, logger)
	userCache := auth.NewUserCache(backend, logger)
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartInvalidationWorker(dispatcher, userCache, logger)

	authCfg := config.AuthConfig{
		JWTSecret:             "e2e-secret",
		AccessTokenTTLMinutes: 30,
		RefreshTokenTTLHours:  168,
		BcryptCost:            4,
	}
	authSvc := service.NewAuthService(authCfg, users, blacklist, logger)
	accountSvc := service.NewAccountService(users, dispatcher, logger)

	registry := map[string]agent.Agent{"recon": reconAgent{}}
	analysisSvc := service.NewAnalysisService(jobs, companies, agent.NewOrchestrator(registry), dispatcher, logger)
	ctx, cancel := context.WithCancel(context.Background())
	analysisSvc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		analysisSvc.Stop()
	})

	limiter := ratelimit.NewLimiter(backend, config.QuotaConfig{
		Free: 1000, Tier1: 1000, Tier2: 1000,
		AnalysisFree: 100, AnalysisTier1: 100, AnalysisTier2: 100,
		Anonymous: 1000,
	}, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	apihttp.RegisterMiddlewares(app, logger, observability.NewMetrics(), 0, false)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health:    handlers.NewHealthHandler("gtm-advisor", "test", nil, backend),
		Auth:      handlers.NewAuthHandler(authSvc),
		Account:   handlers.NewAccountHandler(accountSvc),
		Companies: handlers.NewCompaniesHandler(companies),
		Analysis:  handlers.NewAnalysisHandler(analysisSvc, accountSvc, companies),
		Identity:  auth.NewMiddleware(authSvc.TokenManager(), blacklist, userCache, users, logger),
		Limiter:   limiter,
	})

	return &testEnv{app: app, users: users, companies: companies, jobs: jobs}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), "body: %s", raw)
	}
	return resp.StatusCode, payload
}

// register creates an account and returns its access and refresh tokens.
func (e *testEnv) register(t *testing.T, email string) (access, refresh string) {
	t.Helper()
	status, body := e.do(t, stdhttp.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "password123",
	})
	require.Equal(t, stdhttp.StatusCreated, status, "body: %v", body)
	pair := body["data"].(map[string]any)["auth"].(map[string]any)
	return pair["access_token"].(string), pair["refresh_token"].(string)
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, stdhttp.MethodPost, "/auth/register", "", map[string]string{
		"email":    "ada@x.com",
		"name":     "Ada",
		"password": "password123",
	})
	require.Equal(t, stdhttp.StatusCreated, status)
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "free", user["tier"])

	status, body = env.do(t, stdhttp.MethodPost, "/auth/login", "", map[string]string{
		"email":    "ada@x.com",
		"password": "password123",
	})
	require.Equal(t, stdhttp.StatusOK, status)
	access := body["data"].(map[string]any)["auth"].(map[string]any)["access_token"].(string)

	status, body = env.do(t, stdhttp.MethodGet, "/me", access, nil)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "ada@x.com", body["data"].(map[string]any)["email"])
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, stdhttp.MethodGet, "/me", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)

	status, _ = env.do(t, stdhttp.MethodGet, "/me", "not-a-jwt", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.register(t, "ada@x.com")

	status, _ := env.do(t, stdhttp.MethodGet, "/me", access, nil)
	require.Equal(t, stdhttp.StatusOK, status)

	status, _ = env.do(t, stdhttp.MethodPost, "/auth/logout", access, nil)
	require.Equal(t, stdhttp.StatusOK, status)

	status, _ = env.do(t, stdhttp.MethodGet, "/me", access, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
}

func TestRefreshFlow(t *testing.T) {
	env := newTestEnv(t)
	access, refresh := env.register(t, "ada@x.com")

	// A refresh token is not usable as a bearer credential.
	status, _ := env.do(t, stdhttp.MethodGet, "/me", refresh, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)

	status, body := env.do(t, stdhttp.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, stdhttp.StatusOK, status)
	pair := body["data"].(map[string]any)["auth"].(map[string]any)
	newAccess := pair["access_token"].(string)
	assert.NotEqual(t, access, newAccess)
	assert.NotEqual(t, refresh, pair["refresh_token"].(string))

	status, _ = env.do(t, stdhttp.MethodGet, "/me", newAccess, nil)
	assert.Equal(t, stdhttp.StatusOK, status)
}

func TestDeactivationTakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.register(t, "ada@x.com")

	// Warm the identity cache first.
	status, _ := env.do(t, stdhttp.MethodGet, "/me", access, nil)
	require.Equal(t, stdhttp.StatusOK, status)

	status, _ = env.do(t, stdhttp.MethodDelete, "/me", access, nil)
	require.Equal(t, stdhttp.StatusOK, status)

	status, _ = env.do(t, stdhttp.MethodGet, "/me", access, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
}

func TestCompanyAccessMatrix(t *testing.T) {
	env := newTestEnv(t)
	ownerAccess, _ := env.register(t, "owner@x.com")
	otherAccess, _ := env.register(t, "other@x.com")

	require.NoError(t, env.companies.Create(context.Background(), &domain.Company{
		ID:   "public-co",
		Name: "Open Book Inc",
	}))

	status, body := env.do(t, stdhttp.MethodPost, "/companies", ownerAccess, map[string]string{
		"name":   "Initech",
		"domain": "initech.example",
	})
	require.Equal(t, stdhttp.StatusCreated, status)
	ownedID := body["data"].(map[string]any)["id"].(string)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"unowned company is public", "/companies/public-co", "", stdhttp.StatusOK},
		{"owned company anonymous", "/companies/" + ownedID, "", stdhttp.StatusUnauthorized},
		{"owned company other user", "/companies/" + ownedID, otherAccess, stdhttp.StatusForbidden},
		{"owned company owner", "/companies/" + ownedID, ownerAccess, stdhttp.StatusOK},
		{"missing company", "/companies/nope", ownerAccess, stdhttp.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := env.do(t, stdhttp.MethodGet, tc.path, tc.token, nil)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestPortfolioRequiresPaidTier(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.register(t, "ada@x.com")

	status, _ := env.do(t, stdhttp.MethodGet, "/companies", access, nil)
	assert.Equal(t, stdhttp.StatusForbidden, status)

	status, _ = env.do(t, stdhttp.MethodPut, "/me/tier", access, map[string]string{"tier": "tier1"})
	require.Equal(t, stdhttp.StatusOK, status)

	// The upgrade applies on the next request even though the token still
	// carries the old tier claim.
	status, _ = env.do(t, stdhttp.MethodGet, "/companies", access, nil)
	assert.Equal(t, stdhttp.StatusOK, status)
}

func TestAnalysisRunLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ownerAccess, _ := env.register(t, "owner@x.com")
	otherAccess, _ := env.register(t, "other@x.com")

	status, body := env.do(t, stdhttp.MethodPost, "/companies", ownerAccess, map[string]string{
		"name": "Initech",
	})
	require.Equal(t, stdhttp.StatusCreated, status)
	companyID := body["data"].(map[string]any)["id"].(string)

	status, _ = env.do(t, stdhttp.MethodPost, "/analysis/runs", "", map[string]any{
		"company_id": companyID,
		"task":       "size the market",
	})
	assert.Equal(t, stdhttp.StatusUnauthorized, status)

	status, body = env.do(t, stdhttp.MethodPost, "/analysis/runs", ownerAccess, map[string]any{
		"company_id": companyID,
		"task":       "size the market",
		"agents":     []string{"recon"},
	})
	require.Equal(t, stdhttp.StatusAccepted, status, "body: %v", body)
	jobID := body["data"].(map[string]any)["id"].(string)

	require.Eventually(t, func() bool {
		status, body = env.do(t, stdhttp.MethodGet, fmt.Sprintf("/analysis/runs/%s", jobID), ownerAccess, nil)
		return status == stdhttp.StatusOK && body["data"].(map[string]any)["status"] == "completed"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, fmt.Sprint(body["data"].(map[string]any)["result"]), "all clear")

	status, _ = env.do(t, stdhttp.MethodGet, "/analysis/runs/"+jobID, otherAccess, nil)
	assert.Equal(t, stdhttp.StatusForbidden, status)
}
