package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/HexGuardSec/HexGuard/app/controllers"
	"github.com/HexGuardSec/HexGuard/internal/pkg/middleware"
	"github.com/HexGuardSec/HexGuard/internal/pkg/oauth"
	"github.com/HexGuardSec/HexGuard/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Short share URLs for scan reports
	app.Get("/s/:sharelink", controllers.HandleShareLink)

	// Billing provider webhooks (signature-verified in controller)
	app.Post("/webhooks/lemonsqueezy", controllers.HandleLemonSqueezyWebhook)
}

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)

	// Queue monitor
	adminGroup.Get("/queues", controllers.HandleAdminQueueStats)
	adminGroup.Get("/queues/keys", controllers.HandleAdminQueueKeys)
	adminGroup.Delete("/queues/keys/:key", controllers.HandleAdminQueueKeyDelete)
	adminGroup.Post("/queues/bulk-delete", controllers.HandleAdminQueueBulkDelete)
}
