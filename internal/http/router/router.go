package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/http/handlers"
	"github.com/ignatzorin/littypicky-backend/internal/http/middleware"
	"github.com/ignatzorin/littypicky-backend/internal/metrics"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

// profileSyncEvery задаёт, как часто профиль из токена переписывается в хранилище.
const profileSyncEvery = 10 * time.Minute

type Handlers struct {
	Report       *handlers.ReportHandler
	Verification *handlers.VerificationHandler
	Leaderboard  *handlers.LeaderboardHandler
	Score        *handlers.ScoreHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler
}

type Deps struct {
	Tokens middleware.TokenVerifier
	Users  repository.UserRepository
	Cache  *service.CacheService
}

func SetupRouter(cfg *config.Config, h Handlers, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.MediaStoragePath != "" {
		r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))
	}

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	api.GET("/ws", h.WS.Handle)

	public := api.Group("")
	{
		public.GET("/reports/:id", middleware.UUIDValidator("id"), h.Report.Get)
		public.GET("/reports/:id/verifications", middleware.UUIDValidator("id"), h.Verification.List)

		public.GET("/leaderboards", h.Leaderboard.Global)
		public.GET("/leaderboards/city/:city", h.Leaderboard.City)
		public.GET("/leaderboards/country/:country", h.Leaderboard.Country)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	if deps.Users != nil && deps.Cache != nil {
		protected.Use(middleware.ProfileSync(deps.Users, deps.Cache, profileSyncEvery))
	}
	{
		protected.POST("/reports", h.Report.Submit)
		protected.POST("/reports/:id/claim", middleware.UUIDValidator("id"), h.Report.Claim)
		protected.POST("/reports/:id/clear", middleware.UUIDValidator("id"), h.Report.Clear)
		protected.POST("/reports/:id/release", middleware.UUIDValidator("id"), h.Report.Release)
		protected.POST("/reports/:id/verify",
			middleware.UUIDValidator("id"),
			middleware.UserRateLimitMiddleware(cfg.VoteRateLimit, cfg.RateLimitPeriod),
			h.Verification.Vote,
		)

		protected.GET("/scores/me", h.Score.Me)
		protected.GET("/scores/me/history", h.Score.History)
	}

	return r
}
