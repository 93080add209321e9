package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/meditrack/reminder-service/internal/queue"
	"github.com/meditrack/reminder-service/internal/scheduler"
)

type HealthHandler struct {
	queue *queue.RabbitMqClient
	redis *redis.Client
	sched *scheduler.Scheduler
}

func NewHealthHandler(
	queue *queue.RabbitMqClient,
	redis *redis.Client,
	sched *scheduler.Scheduler,
) *HealthHandler {
	return &HealthHandler{
		queue: queue,
		redis: redis,
		sched: sched,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)

	// Check RabbitMQ; absent queue means alerts degrade to no-op.
	switch {
	case h.queue == nil:
		checks["rabbitmq"] = "disabled"
	case h.queue.IsConnected():
		checks["rabbitmq"] = "healthy"
	default:
		checks["rabbitmq"] = "unhealthy"
	}

	// Check Redis
	if err := h.redis.Ping(ctx).Err(); err == nil {
		checks["redis"] = "healthy"
	} else {
		checks["redis"] = "unhealthy"
	}

	// Determine overall status
	overallStatus := "healthy"
	for _, status := range checks {
		if status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		} else if status == "disabled" {
			overallStatus = "degraded"
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":         overallStatus,
		"timestamp":      time.Now().Format(time.RFC3339),
		"checks":         checks,
		"pending_timers": h.sched.Pending(),
		"version":        "1.0.0",
	})
}
