package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/littypicky-backend/internal/http/response"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit(limit, period, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// UserRateLimitMiddleware ограничивает запросы авторизованного пользователя.
// Должен стоять после AuthMiddleware; без пользователя ключом служит IP.
func UserRateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit(limit, period, func(c *gin.Context) string {
		if raw, ok := c.Get(ContextUserIDKey); ok {
			if userID, ok := raw.(uuid.UUID); ok {
				return "user:" + userID.String()
			}
		}
		return c.ClientIP()
	})
}

func rateLimit(limit int64, period time.Duration, key func(c *gin.Context) string) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{
		Period: period,
		Limit:  limit,
	})

	return func(c *gin.Context) {
		state, err := instance.Get(c, key(c))
		if err != nil {
			logger.Log.WithError(err).Error("Rate limiter failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if state.Reached {
			response.TooManyRequests(c, "слишком много запросов, попробуйте позже")
			return
		}

		c.Next()
	}
}
