// routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"aegis/controllers"
	"aegis/middleware"
)

// Dependencies carries the constructed controllers and middleware. main.go
// owns construction order; routes only wire the HTTP surface.
type Dependencies struct {
	Auth         *middleware.AuthMiddleware
	ErrorHandler *middleware.ErrorHandler
	Redis        *redis.Client
	Logger       *logrus.Logger

	Monitor   *controllers.MonitorController
	Bridge    *controllers.BridgeController
	Contact   *controllers.ContactController
	WebSocket *controllers.WebSocketController
	Health    *controllers.HealthController
}

// SetupRoutes initializes all application routes
func SetupRoutes(deps Dependencies) *gin.Engine {
	router := gin.New()

	setupGlobalMiddleware(router, deps)
	setupPublicRoutes(router, deps)
	setupAuthenticatedRoutes(router, deps)
	setupWebSocketRoutes(router, deps)

	return router
}

func setupGlobalMiddleware(router *gin.Engine, deps Dependencies) {
	router.Use(deps.ErrorHandler.Handle())
	router.Use(middleware.LoggerMiddleware(middleware.LoggerConfig{
		Logger:    deps.Logger,
		SkipPaths: []string{"/health"},
	}))
}

// Public routes (no authentication required)
func setupPublicRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", deps.Health.Health)
}

// Authenticated routes (requires valid device token)
func setupAuthenticatedRoutes(router *gin.Engine, deps Dependencies) {
	api := router.Group("/api/v1")
	api.Use(deps.Auth.RequireAuth())

	SetupMonitorRoutes(api, deps)
	SetupBridgeRoutes(api, deps)
	SetupContactRoutes(api, deps)
}

// WebSocket routes authenticate inside the handler, token travels as a
// query parameter
func setupWebSocketRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/ws", deps.WebSocket.HandleWebSocket)
}

// commandRateLimiter builds the throttle shared by the widget ingress routes.
func commandRateLimiter(deps Dependencies) gin.HandlerFunc {
	return middleware.NewRateLimiter(middleware.RateLimitConfig{
		Redis:        deps.Redis,
		Requests:     30,
		Window:       time.Minute,
		KeyPrefix:    "aegis:rate_limit:widget",
		ErrorMessage: "Too many widget commands",
	}).Middleware()
}
