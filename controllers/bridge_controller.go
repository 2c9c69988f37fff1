package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aegis/models"
	"aegis/services"
	"aegis/utils"
)

// BridgeController is the widget ingress. The lock-screen extension cannot
// touch the state machine directly; it posts commands here and the resume
// path applies them.
type BridgeController struct {
	bridgeService *services.BridgeService
	waker         services.Waker
}

func NewBridgeController(bridgeService *services.BridgeService, waker services.Waker) *BridgeController {
	return &BridgeController{
		bridgeService: bridgeService,
		waker:         waker,
	}
}

// Command records a widget command and requests a main-process wake
func (bc *BridgeController) Command(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.WidgetCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if err := bc.bridgeService.Execute(c.Request.Context(), userID, req); err != nil {
		logrus.Errorf("Widget command failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	// Accepted, not applied: the state machine picks the command up on its
	// next resume.
	utils.SuccessResponse(c, "Command accepted", gin.H{"command": req.Command})
}

// Wake pokes the resume path without queuing a command
func (bc *BridgeController) Wake(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	bc.waker.Wake()
	utils.SuccessResponse(c, "Wake requested", nil)
}
