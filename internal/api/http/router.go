package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/property-service/internal/api/http/handlers"
	"github.com/spec-kit/property-service/internal/auth"
	"github.com/spec-kit/property-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Properties     *handlers.PropertiesHandler
	Tasks          *handlers.TasksHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	SignInLimiter  *RateLimiter
	Metrics        fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	mw := cfg.AuthMiddleware
	throttle := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.SignInLimiter != nil {
		throttle = cfg.SignInLimiter.Handler()
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/confirm", cfg.Auth.ConfirmEmail)
	authGroup.Post("/user/sign-up", throttle, cfg.Auth.SignUp)
	authGroup.Post("/:role/sign-in", throttle, cfg.Auth.SignIn)
	authGroup.Post("/:role/sign-out", cfg.Auth.SignOut)
	authGroup.Get("/:role/profile", cfg.Auth.Profile)
	authGroup.Post("/:role/password/reset-request", throttle, cfg.Auth.RequestPasswordReset)
	authGroup.Post("/:role/password/recover", throttle, cfg.Auth.Recover)
	authGroup.Post("/:role/password/reset", cfg.Auth.ResetPassword)

	api.Get("/properties", cfg.Properties.List)
	api.Get("/properties/:id", mw.Optional, mw.OptionalRole(domain.RoleAdmin), cfg.Properties.Get)
	api.Post("/properties", mw.Handle, mw.RequireRole(domain.RoleUser), cfg.Properties.Submit)
	api.Get("/me/properties", mw.Handle, mw.RequireRole(domain.RoleUser), cfg.Properties.Dashboard)

	tasks := api.Group("/tasks", mw.Handle)
	tasks.Get("/", mw.RequireRole(domain.RoleAdmin, domain.RoleStaff), cfg.Tasks.List)
	tasks.Get("/summary", mw.RequireRole(domain.RoleAdmin, domain.RoleStaff), cfg.Tasks.Summary)
	tasks.Post("/", mw.RequireRole(domain.RoleAdmin), cfg.Tasks.Create)
	tasks.Put("/:id/status", mw.RequireRole(domain.RoleStaff), cfg.Tasks.UpdateStatus)
	tasks.Put("/:id", mw.RequireRole(domain.RoleAdmin), cfg.Tasks.Update)
	tasks.Delete("/:id", mw.RequireRole(domain.RoleAdmin), cfg.Tasks.Delete)

	admin := api.Group("/admin", mw.Handle, mw.RequireRole(domain.RoleAdmin))
	admin.Get("/properties", cfg.Properties.ListForModeration)
	admin.Post("/properties", cfg.Properties.CreateDirect)
	admin.Post("/properties/:id/approve", cfg.Properties.Approve)
	admin.Post("/properties/:id/reject", cfg.Properties.Reject)
	admin.Put("/properties/:id/featured", cfg.Properties.SetFeatured)
	admin.Get("/excluded-ids", cfg.Admin.ExcludedIDs)
	admin.Get("/leads", cfg.Admin.Leads)
	admin.Get("/staff", cfg.Admin.Staff)
}
