package middlewares

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grocery-orders/ratelimit"
)

// RateLimit rejects a client IP with 429 once it exceeds the limiter's window.
func RateLimit(l *ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := l.Allow(scope + ":" + c.ClientIP())
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			rateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
