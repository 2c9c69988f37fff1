package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aegis/middleware"
	"aegis/utils"
	"aegis/websocket"
)

// WebSocketController upgrades lock-screen surface connections.
type WebSocketController struct {
	hub            *websocket.Hub
	authMiddleware *middleware.AuthMiddleware
}

func NewWebSocketController(hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware) *WebSocketController {
	return &WebSocketController{
		hub:            hub,
		authMiddleware: authMiddleware,
	}
}

// HandleWebSocket authenticates and upgrades a surface connection
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	claims, err := wc.authMiddleware.WebSocketAuth(token)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid surface token")
		return
	}

	client, err := websocket.Upgrade(c.Writer, c.Request, wc.hub, claims.UserID)
	if err != nil {
		logrus.Errorf("Surface upgrade failed: %v", err)
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
