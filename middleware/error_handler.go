package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aegis/models"
	"aegis/utils"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 {
			eh.handleGinErrors(c)
		}
	})
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	eh.logger.WithFields(logrus.Fields{
		"panic":      err,
		"stack":      string(debug.Stack()),
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
	}).Error("Panic recovered")

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: "Internal server error",
		Code:    "PANIC_RECOVERED",
	})
	c.Abort()
}

func (eh *ErrorHandler) handleGinErrors(c *gin.Context) {
	lastError := c.Errors.Last()
	if lastError == nil || c.Writer.Written() {
		return
	}

	if serviceErr, ok := utils.GetServiceError(lastError.Err); ok {
		eh.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"code":       serviceErr.Code,
		}).Warn(serviceErr.Message)

		c.JSON(serviceErr.StatusCode, models.ErrorResponse{
			Error:   serviceErr.Code,
			Message: serviceErr.Message,
			Code:    serviceErr.Code,
		})
		return
	}

	eh.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"error":      lastError.Err.Error(),
	}).Error("Unhandled request error")

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: "Internal server error",
		Code:    "INTERNAL_ERROR",
	})
}
