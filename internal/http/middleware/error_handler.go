package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/littypicky-backend/internal/http/response"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, если хэндлер
// сам не записал ответ. AppError отдаётся клиенту, остальное маскируется.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		response.Error(c, c.Errors.Last().Err)
	}
}
