package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"

	"aegis/models"
)

type HealthController struct {
	mongoClient *mongo.Client
	redisClient *redis.Client
	version     string
	startTime   time.Time
}

func NewHealthController(mongoClient *mongo.Client, redisClient *redis.Client, version string) *HealthController {
	return &HealthController{
		mongoClient: mongoClient,
		redisClient: redisClient,
		version:     version,
		startTime:   time.Now(),
	}
}

// Health reports service liveness and backing store reachability
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	services := map[string]string{
		"mongodb": "healthy",
		"redis":   "healthy",
	}
	status := "healthy"

	if err := hc.mongoClient.Ping(ctx, nil); err != nil {
		services["mongodb"] = "unhealthy"
		status = "degraded"
	}
	if err := hc.redisClient.Ping(ctx).Err(); err != nil {
		services["redis"] = "unhealthy"
		status = "degraded"
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, models.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Version:   hc.version,
		Uptime:    time.Since(hc.startTime).String(),
	})
}
