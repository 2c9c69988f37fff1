package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aegis/models"
	"aegis/utils"
)

type AuthMiddleware struct {
	jwtService *utils.JWTService
}

func NewAuthMiddleware(jwtService *utils.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// RequireAuth validates the device token and sets user context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Authentication token required",
				Code:    "AUTH_TOKEN_REQUIRED",
			})
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			logrus.Warnf("Invalid token: %v", err)
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Invalid authentication token",
				Code:    "AUTH_TOKEN_INVALID",
			})
			c.Abort()
			return
		}

		if claims.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Authentication token expired",
				Code:    "AUTH_TOKEN_EXPIRED",
			})
			c.Abort()
			return
		}

		if claims.TokenType != "device" && claims.TokenType != "widget" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Invalid token type",
				Code:    "AUTH_TOKEN_INVALID_TYPE",
			})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("deviceID", claims.DeviceID)
		c.Set("tokenType", claims.TokenType)

		c.Next()
	})
}

// RequireTokenType restricts a route to specific token kinds. The widget
// extension's token cannot reach the contact management surface this way.
func (am *AuthMiddleware) RequireTokenType(types ...string) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		tokenType := c.GetString("tokenType")
		if tokenType == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Token type not found in context",
				Code:    "AUTH_TOKEN_TYPE_MISSING",
			})
			c.Abort()
			return
		}

		allowed := false
		for _, t := range types {
			if tokenType == t {
				allowed = true
				break
			}
		}

		if !allowed {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "FORBIDDEN",
				Message: "Insufficient permissions",
				Code:    "AUTH_INSUFFICIENT_PERMISSIONS",
			})
			c.Abort()
			return
		}

		c.Next()
	})
}

// WebSocketAuth validates the token presented on a surface connection.
func (am *AuthMiddleware) WebSocketAuth(token string) (*utils.Claims, error) {
	if token == "" {
		return nil, utils.NewUnauthorizedError("Authentication token required")
	}

	claims, err := am.jwtService.ValidateToken(token)
	if err != nil {
		return nil, utils.NewUnauthorizedError("Invalid authentication token")
	}

	if claims.ExpiresAt.Before(time.Now()) {
		return nil, utils.NewUnauthorizedError("Authentication token expired")
	}

	return claims, nil
}

// extractToken extracts the token from the request
func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	// Check Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// Check query parameter, used by surface connections
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetCurrentUserID returns the current authenticated user ID from context
func GetCurrentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}
