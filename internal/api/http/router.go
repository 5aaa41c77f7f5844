package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studiodesk/support-tickets/internal/api/http/handlers"
	"github.com/studiodesk/support-tickets/internal/auth"
	"github.com/studiodesk/support-tickets/internal/domain"
)

// APIPrefix is the versioned root of every business route.
const APIPrefix = "/api/v1"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Intake         *handlers.IntakeHandler
	Settings       *handlers.SettingsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group(APIPrefix)

	// public
	api.Post("/webhooks/:key", cfg.Intake.Webhook)
	api.Post("/auth/login", cfg.Auth.Login)

	staffOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole()}

	tickets := api.Group("/tickets", staffOnly...)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Patch("/:id/status-owner", cfg.Tickets.UpdateStatusOwner)
	tickets.Post("/:id/close-owner", cfg.Tickets.CloseOwner)

	email := api.Group("/integrations/email", staffOnly...)
	email.Post("/classify", cfg.Intake.ClassifyEmail)
	email.Post("/import", cfg.Intake.ImportEmail)

	settings := api.Group("/settings/integrations", staffOnly...)
	settings.Get("/", cfg.Settings.Get)
	settings.Put("/webhooks", auth.RequireRole(domain.UserRoleAdmin), cfg.Settings.SaveWebhooks)
	settings.Put("/email", auth.RequireRole(domain.UserRoleAdmin), cfg.Settings.SaveEmail)
}
