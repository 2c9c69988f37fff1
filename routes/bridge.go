// routes/bridge.go
package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupBridgeRoutes configures the widget ingress routes. Both are throttled:
// a looping widget must not flood the flag mailbox.
func SetupBridgeRoutes(router *gin.RouterGroup, deps Dependencies) {
	limiter := commandRateLimiter(deps)

	widget := router.Group("/widget")
	widget.Use(limiter)
	{
		widget.POST("/command", deps.Bridge.Command)
	}

	router.POST("/wake", limiter, deps.Bridge.Wake)
}
