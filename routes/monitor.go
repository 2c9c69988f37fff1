// routes/monitor.go
package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupMonitorRoutes configures the monitoring session and alert routes
func SetupMonitorRoutes(router *gin.RouterGroup, deps Dependencies) {
	monitor := router.Group("/monitor")
	{
		monitor.POST("/activate", deps.Monitor.Activate)
		monitor.POST("/deactivate", deps.Monitor.Deactivate)
		monitor.POST("/checkin", deps.Monitor.CheckIn)
		monitor.GET("/status", deps.Monitor.Status)
		monitor.GET("/trail", deps.Monitor.GetTrail)
	}

	alerts := router.Group("/alerts")
	{
		alerts.GET("/", deps.Monitor.GetActiveAlerts)
		alerts.GET("/history", deps.Monitor.GetAlertHistory)
		alerts.GET("/:alertId", deps.Monitor.GetAlert)
		alerts.POST("/:alertId/resolve", deps.Monitor.ResolveAlert)
	}
}
