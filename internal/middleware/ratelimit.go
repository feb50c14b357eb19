package middleware

import (
	"log"
	"net/http"
	"time"

	"anoa.com/certhub/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit applies a per-IP fixed-window limit to the wrapped routes.
// Fails open: if redis is down the request proceeds, availability of the
// auth and public endpoints wins over throttling precision.
func RateLimit(rdb *redis.Client, action string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := service.CheckRateLimit(c.Request.Context(), rdb, c.ClientIP(), action, max, window)
		if err != nil {
			log.Printf("[RateLimit] check failed for %s: %v", c.ClientIP(), err)
			c.Next()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests from this IP, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
