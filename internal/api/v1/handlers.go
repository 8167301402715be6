package apiv1

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/HexGuardSec/HexGuard/app/controllers"
	"github.com/HexGuardSec/HexGuard/internal/pkg/middleware"
)

// APIServer implements the v1 endpoints
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response shape
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// RegisterHandlers wires all v1 routes onto the group.
func RegisterHandlers(v1 fiber.Router, s *APIServer) {
	v1.Get("/ping", s.GetPing)

	// Account lifecycle
	v1.Post("/auth/register", controllers.HandleAuthRegister)
	v1.Post("/auth/login", controllers.HandleAuthLogin)
	v1.Post("/auth/logout", controllers.HandleAuthLogout)
	v1.Post("/auth/activate", controllers.HandleAuthActivate)
	v1.Get("/auth/activate", controllers.HandleAuthActivate)

	// Public platform data; visibility checks happen in the controllers
	v1.Get("/stats", controllers.HandlePlatformStats)
	v1.Get("/scans/public", controllers.HandlePublicScans)
	v1.Get("/scans/:uuid/status", controllers.HandleScanStatus)
	v1.Get("/scans/:uuid", controllers.HandleScanGet)

	// Authenticated routes accept a web session or an API key
	auth := requireSessionOrAPIKey()

	v1.Post("/scans", auth, controllers.HandleScanCreate)
	v1.Get("/scans", auth, controllers.HandleScanList)
	v1.Delete("/scans/:uuid", auth, controllers.HandleScanDelete)
	v1.Post("/scans/:uuid/like", auth, controllers.HandleScanLike)
	v1.Delete("/scans/:uuid/like", auth, controllers.HandleScanUnlike)

	v1.Post("/fetch/contract", auth, controllers.HandleFetchContract)
	v1.Post("/fetch/github", auth, controllers.HandleFetchGitHub)

	v1.Post("/billing/checkout", auth, controllers.HandleCheckoutCreate)
	v1.Get("/billing/subscription", auth, controllers.HandleBillingSubscription)
	v1.Get("/billing/portal", auth, controllers.HandleCustomerPortal)
	v1.Get("/billing/credits", auth, controllers.HandleCreditBalance)

	v1.Get("/user/account", auth, controllers.HandleGetUserAccount)
	v1.Post("/user/api-key", auth, controllers.HandleUserAPIKeyGenerate)
	v1.Delete("/user/api-key", auth, controllers.HandleUserAPIKeyRevoke)
}

// requireSessionOrAPIKey authenticates via API key when one is presented,
// otherwise requires an established web session.
func requireSessionOrAPIKey() fiber.Handler {
	apiKeyHandler := middleware.APIKeyAuthMiddleware()

	return func(c *fiber.Ctx) error {
		if hasAPIKeyHeader(c) {
			return apiKeyHandler(c)
		}
		return middleware.RequireAPISessionAuth(c)
	}
}

func hasAPIKeyHeader(c *fiber.Ctx) bool {
	if strings.TrimSpace(c.Get("X-API-Key")) != "" {
		return true
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	return strings.HasPrefix(strings.ToLower(auth), "bearer ")
}
