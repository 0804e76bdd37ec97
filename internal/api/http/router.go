package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sekolahku/portal/internal/api/http/handlers"
	"github.com/sekolahku/portal/internal/auth"
	"github.com/sekolahku/portal/internal/domain"
	"github.com/sekolahku/portal/internal/service"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Pages          *handlers.PagesHandler
	Admin          *handlers.AdminHandler
	Guard          *auth.Guard
	Access         *service.AccessService
	APIMaxRequests int
	APIWindow      time.Duration
}

// RegisterRoutes wires HTTP routes. The guard runs ahead of every route so
// the protection table, not route registration, decides what is protected.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Guard.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Get("/login", cfg.Pages.Login)
	app.Get("/unauthorized", cfg.Pages.Unauthorized)
	for _, role := range domain.AllRoles {
		app.Get(role.DashboardPath(), cfg.Pages.Dashboard)
		app.Get(role.DashboardPath()+"/*", cfg.Pages.Dashboard)
	}

	api := app.Group("/api")
	if cfg.APIMaxRequests > 0 {
		api.Use(APIThrottle(cfg.APIMaxRequests, cfg.APIWindow))
	}

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Guard.OptionalSession(), cfg.Auth.Logout)

	session := cfg.Guard.RequireSession()
	authGroup.Get("/me", session, cfg.Auth.Me)

	osis := api.Group("/osis", session)
	osis.Get("/access", cfg.Auth.OsisAccess)
	osis.Get("/workspace", RequireOsisAccess(cfg.Access), cfg.Auth.Me)

	// /api/admin is already restricted to ADMIN by the guard's route table.
	admin := api.Group("/admin", auth.RequirePermission("manage_users"))
	admin.Get("/session", cfg.Auth.Me)
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Put("/students/:userId/osis-access", cfg.Admin.SetOsisAccess)

	kesiswaan := api.Group("/kesiswaan")
	kesiswaan.Get("/session", auth.RequireRole("kesiswaan", "admin"), cfg.Auth.Me)

	ppdb := api.Group("/ppdb")
	ppdb.Get("/session", auth.RequireRole("ppdb_admin", "admin"), cfg.Auth.Me)
}
