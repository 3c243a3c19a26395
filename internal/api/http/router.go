package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/waitlist-service/internal/api/http/handlers"
	"github.com/spec-kit/waitlist-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	Webhook        *handlers.WebhookHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Customer surface.
	app.Post("/tickets", cfg.Tickets.Register)
	app.Get("/tickets/:id/position", cfg.Tickets.Position)
	app.Get("/queue", cfg.Tickets.Queue)

	// Chat-platform webhook.
	app.Post("/callback", cfg.Webhook.Callback)

	app.Post("/auth/staff/login", cfg.Auth.StaffLogin)

	// Operator surface.
	staff := app.Group("", cfg.AuthMiddleware.Handle)
	staff.Post("/tickets/:id/call", cfg.Admin.Call)
	staff.Post("/tickets/:id/complete", cfg.Admin.Complete)
	staff.Post("/tickets/:id/requeue", cfg.Admin.Requeue)
	staff.Delete("/tickets/:id", cfg.Admin.Remove)
	staff.Post("/queue/purge-completed", cfg.Admin.PurgeCompleted)
	staff.Get("/admin/queue", cfg.Admin.Queue)
}
