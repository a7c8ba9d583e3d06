package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/threadmail/internal/api/http/handlers"
	"github.com/spec-kit/threadmail/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Interactions *handlers.InteractionsHandler
	OAuth        *handlers.OAuthHandler
	Signature    *auth.SignatureMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/interactions", cfg.Signature.Handle, cfg.Interactions.Handle)

	app.Get("/linked-role", cfg.OAuth.LinkedRole)
	app.Get("/oauth/callback", cfg.OAuth.Callback)
}
