package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-orchestrator/internal/api/http/handlers"
	"github.com/spec-kit/ops-orchestrator/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Ticks        *handlers.TickHandler
	TokenManager *auth.TokenManager
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	internal := app.Group("/internal", auth.RequireToken(cfg.TokenManager))
	internal.Post("/ticks", cfg.Ticks.Trigger)
}
