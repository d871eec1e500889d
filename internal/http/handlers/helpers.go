package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/http/middleware"
	"github.com/ignatzorin/littypicky-backend/internal/http/response"
)

var errUserNotFound = errors.New("пользователь не найден в контексте")

// currentUserID извлекает userID из контекста.
func currentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, errUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, errUserNotFound
	}

	return userID, nil
}

func emailVerified(c *gin.Context) bool {
	return c.GetBool(middleware.ContextEmailVerifiedKey)
}

// requireUser пишет 401 и возвращает false, если пользователь не авторизован.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, false
	}
	return userID, true
}

// reportIDParam разбирает :id и пишет 400 при ошибке.
func reportIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "неверный формат id отчёта")
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit возвращает 0, если limit не передан; это значит "по умолчанию".
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		response.BadRequest(c, "limit должен быть положительным числом")
		return 0, false
	}
	return limit, true
}
