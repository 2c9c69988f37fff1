package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aegis/interfaces"
	"aegis/models"
	"aegis/services"
	"aegis/utils"
)

type MonitorController struct {
	monitorService *services.MonitorService
	alertService   *services.AlertService
	trailStore     interfaces.TrailStore
}

func NewMonitorController(
	monitorService *services.MonitorService,
	alertService *services.AlertService,
	trailStore interfaces.TrailStore,
) *MonitorController {
	return &MonitorController{
		monitorService: monitorService,
		alertService:   alertService,
		trailStore:     trailStore,
	}
}

// =================== MONITORING SESSION ===================

// Activate arms monitoring at the requested intensity
func (mc *MonitorController) Activate(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.ActivateMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if err := mc.monitorService.Activate(c.Request.Context(), req); err != nil {
		logrus.Errorf("Activate monitoring failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Monitoring activated", mc.monitorService.Status())
}

// Deactivate stops monitoring and returns the session to idle
func (mc *MonitorController) Deactivate(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	if err := mc.monitorService.Deactivate(c.Request.Context()); err != nil {
		logrus.Errorf("Deactivate monitoring failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Monitoring deactivated", mc.monitorService.Status())
}

// CheckIn extends the escalation deadline
func (mc *MonitorController) CheckIn(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if err := mc.monitorService.CheckIn(c.Request.Context(), req); err != nil {
		logrus.Errorf("Check-in failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Check-in recorded", mc.monitorService.Status())
}

// Status returns the live session snapshot
func (mc *MonitorController) Status(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	utils.SuccessResponse(c, "Monitoring status retrieved", mc.monitorService.Status())
}

// =================== SAFETY ALERTS ===================

// GetActiveAlerts returns the user's open alerts
func (mc *MonitorController) GetActiveAlerts(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	alerts, err := mc.alertService.GetActiveAlerts(c.Request.Context(), userID)
	if err != nil {
		logrus.Errorf("Get active alerts failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Active alerts retrieved", alerts)
}

// GetAlertHistory returns past alerts
func (mc *MonitorController) GetAlertHistory(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	alerts, err := mc.alertService.GetAlertHistory(c.Request.Context(), userID, limit)
	if err != nil {
		logrus.Errorf("Get alert history failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert history retrieved", alerts)
}

// GetAlert returns a single alert
func (mc *MonitorController) GetAlert(c *gin.Context) {
	userID := c.GetString("userID")
	alertID := c.Param("alertId")

	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	alert, err := mc.alertService.GetAlert(c.Request.Context(), userID, alertID)
	if err != nil {
		logrus.Errorf("Get alert failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert retrieved", alert)
}

// ResolveAlert closes an alert with an outcome
func (mc *MonitorController) ResolveAlert(c *gin.Context) {
	userID := c.GetString("userID")
	alertID := c.Param("alertId")

	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if err := mc.alertService.Resolve(c.Request.Context(), userID, alertID, req); err != nil {
		logrus.Errorf("Resolve alert failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert resolved", nil)
}

// =================== LOCATION TRAIL ===================

// GetTrail returns the persisted location trail
func (mc *MonitorController) GetTrail(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

	req := models.LocationTrailRequest{
		UserID:  userID,
		AlertID: c.Query("alertId"),
		Limit:   limit,
	}

	entries, err := mc.trailStore.GetTrail(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Get trail failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location trail retrieved", entries)
}
