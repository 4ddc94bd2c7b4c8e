package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the retail circuit state; an
// open circuit degrades the service but does not make it unhealthy.
func Health(db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			for _, q := range []string{worker.QueueTicket, worker.QueueEmail, worker.QueueSeguimiento} {
				if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
					dlq += n
				}
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":      status == http.StatusOK,
			"db":      dbStatus,
			"redis":   redisStatus,
			"retail":  cb.State().String(),
			"dlq_len": dlq,
		})
	}
}
