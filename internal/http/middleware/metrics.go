package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/littypicky-backend/internal/metrics"
)

// Metrics пишет длительность запроса по шаблону маршрута, а не по сырому пути.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
