package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Get user ID from gin context (set by auth middleware)
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if idStr, ok := userID.(string); ok {
			return idStr
		}
	}
	return ""
}

// UUID Generation
func GenerateUUID() string {
	return uuid.New().String()
}

func GenerateShortID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// Linking Code Generation
func GenerateLinkingCode() string {
	const charset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	const length = 8

	b := make([]byte, length)
	random := make([]byte, length)
	rand.Read(random)
	for i := range b {
		b[i] = charset[int(random[i])%len(charset)]
	}
	return string(b)
}

func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

func FormatDuration(duration time.Duration) string {
	if duration < time.Minute {
		return fmt.Sprintf("%.0fs", duration.Seconds())
	}
	if duration < time.Hour {
		return fmt.Sprintf("%.0fm", duration.Minutes())
	}
	return fmt.Sprintf("%.1fh", duration.Hours())
}

func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
