package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/http/response"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey        = "userID"
	ContextEmailVerifiedKey = "emailVerified"
	ContextIdentityKey      = "identity"
)

// TokenVerifier проверяет access токен провайдера идентичности.
type TokenVerifier interface {
	Verify(raw string) (*service.Identity, error)
}

// AuthMiddleware проверяет Bearer токен и кладёт личность пользователя в контекст.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		identity, err := tokens.Verify(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || identity.UserID == uuid.Nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

func SetIdentity(c *gin.Context, identity *service.Identity) {
	c.Set(ContextUserIDKey, identity.UserID)
	c.Set(ContextEmailVerifiedKey, identity.EmailVerified)
	c.Set(ContextIdentityKey, identity)
}

// CurrentIdentity возвращает личность, положенную AuthMiddleware.
func CurrentIdentity(c *gin.Context) (*service.Identity, bool) {
	raw, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := raw.(*service.Identity)
	return identity, ok && identity != nil
}
