package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus returns the configured limits and the backend in use
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		backend := "memory"
		if rl.redisClient.IsEnabled() {
			backend = "redis"
		}

		c.JSON(http.StatusOK, gin.H{
			"ip":      c.ClientIP(),
			"backend": backend,
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimit,
					"burst":  rl.burst(rl.config.IPLimit),
					"period": "1 minute",
				},
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
