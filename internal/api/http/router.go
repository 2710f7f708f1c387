package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gtmhq/gtm-advisor/internal/api/http/handlers"
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Account   *handlers.AccountHandler
	Companies *handlers.CompaniesHandler
	Analysis  *handlers.AnalysisHandler
	Identity  *auth.Middleware
	Limiter   *ratelimit.Limiter
}

// RegisterRoutes wires HTTP routes. The identity middleware runs on every
// route and never rejects; guards and the limiter decide per route group.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Use(cfg.Identity.Handle)
	limited := cfg.Limiter.Middleware(ratelimit.ScopeRequest)

	authGroup := app.Group("/auth", limited)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", auth.RequireAuth(), cfg.Auth.Logout)

	app.Get("/me", limited, auth.RequireAuth(), cfg.Auth.Me)
	app.Put("/me/tier", limited, auth.RequireAuth(), cfg.Account.ChangeTier)
	app.Delete("/me", limited, auth.RequireAuth(), cfg.Account.Deactivate)

	companies := app.Group("/companies", limited)
	companies.Post("", auth.RequireAuth(), cfg.Companies.Create)
	// The portfolio view is a paid feature; single-company reads are not.
	companies.Get("", auth.RequireTier(domain.Tier1), cfg.Companies.ListMine)
	companies.Get("/:id", cfg.Companies.Get)

	analysis := app.Group("/analysis", cfg.Limiter.Middleware(ratelimit.ScopeAnalysis), auth.RequireAuth())
	analysis.Post("/runs", cfg.Analysis.Start)
	analysis.Get("/runs/:id", cfg.Analysis.Get)
	analysis.Delete("/runs/:id", cfg.Analysis.Cancel)
}
