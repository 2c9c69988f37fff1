package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"aegis/models"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis        *redis.Client
	Requests     int           // Number of requests allowed
	Window       time.Duration // Time window
	KeyPrefix    string        // Redis key prefix
	ErrorMessage string        // Custom error message
}

// RateLimiter throttles the command ingress. A stuck widget retry loop must
// not turn into a notification storm; the limit is per user, falling back to
// client IP before authentication.
type RateLimiter struct {
	config RateLimitConfig
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "aegis:rate_limit"
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = "Rate limit exceeded"
	}

	return &RateLimiter{config: config}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		key := rl.getKey(c)

		allowed, remaining, resetTime, err := rl.checkLimit(c, key)
		if err != nil {
			// Redis down must not block a panic button press.
			logrus.Errorf("Rate limit check failed: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "RATE_LIMIT_EXCEEDED",
				Message: rl.config.ErrorMessage,
				Code:    "RATE_LIMIT_EXCEEDED",
			})
			c.Abort()
			return
		}

		c.Next()
	})
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	if userID := c.GetString("userID"); userID != "" {
		return fmt.Sprintf("%s:user:%s", rl.config.KeyPrefix, userID)
	}
	return fmt.Sprintf("%s:ip:%s", rl.config.KeyPrefix, c.ClientIP())
}

func (rl *RateLimiter) checkLimit(c *gin.Context, key string) (bool, int, time.Time, error) {
	ctx := c.Request.Context()
	now := time.Now()
	windowKey := fmt.Sprintf("%s:%d", key, now.Unix()/int64(rl.config.Window.Seconds()))

	pipe := rl.config.Redis.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, now, err
	}

	count := int(incr.Val())
	remaining := rl.config.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	resetTime := now.Truncate(rl.config.Window).Add(rl.config.Window)

	return count <= rl.config.Requests, remaining, resetTime, nil
}
