package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

type profileStore interface {
	Upsert(ctx context.Context, profile *entity.UserProfile) error
}

// ProfileSync сохраняет имя, город и страну из токена, чтобы рейтинг можно было
// разбить по городам. Запись делается не чаще раза в every на пользователя;
// сбой синхронизации запрос не прерывает.
func ProfileSync(users profileStore, cache *service.CacheService, every time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.Next()
			return
		}

		key := service.ProfileSyncCacheKey(identity.UserID)
		if _, synced := cache.Get(key); !synced {
			if err := users.Upsert(c.Request.Context(), identity.Profile(time.Now().UTC())); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"user_id": identity.UserID,
					"error":   err.Error(),
				}).Warn("Profile sync failed")
			} else {
				cache.Set(key, true, every)
			}
		}

		c.Next()
	}
}
