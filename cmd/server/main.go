package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/littypicky-backend/internal/app"
	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/events"
	"github.com/ignatzorin/littypicky-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/littypicky-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/littypicky-backend/internal/http/router"
	"github.com/ignatzorin/littypicky-backend/internal/infrastructure/rabbitmq"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/service"
	"github.com/ignatzorin/littypicky-backend/internal/storage"
	"github.com/ignatzorin/littypicky-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	// Хранилище и миграции.
	stores, err := app.OpenStores(ctx, cfg, true)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось открыть хранилище")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Log.WithError(err).Error("main: ошибка закрытия базы")
		}
	}()

	// Рассылка событий после фиксации: вебсокеты и, если настроен, RabbitMQ.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, "ws-hub", hub.Run)

	publishers := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		rabbit, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Log.WithError(err).Fatal("main: не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()

		async := events.NewAsync(rabbit, 1024)
		defer async.Close()
		publishers = append(publishers, async)
	}

	core := app.NewCore(stores, cfg.Scoring, publishers)

	cache := service.NewCacheService(time.Minute)
	defer cache.Close()
	leaderboard := service.NewLeaderboardService(stores.Leaderboard, cache, cfg.LeaderboardCacheTTL, cfg.LeaderboardLimit)

	photos, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось подготовить файловое хранилище")
	}

	identity := service.NewIdentityVerifier(cfg.IDPJWTSecret, cfg.IDPIssuer)

	var pinger httpHandlers.Pinger
	if stores.DB != nil {
		pinger = stores.DB
	}

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Report:       httpHandlers.NewReportHandler(core.Lifecycle, photos),
		Verification: httpHandlers.NewVerificationHandler(core.CastVote, core.ListVotes),
		Leaderboard:  httpHandlers.NewLeaderboardHandler(leaderboard),
		Score:        httpHandlers.NewScoreHandler(core.Scoring),
		WS:           httpHandlers.NewWSHandler(hub, identity, cfg.AllowedOrigins),
		Health:       httpHandlers.NewHealthHandler(pinger, cfg.StoreDriver),
	}, httpRouter.Deps{
		Tokens: identity,
		Users:  stores.Users,
		Cache:  cache,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала. main ждёт конца Shutdown, чтобы
	// отложенные Close не сработали раньше, чем допишутся текущие запросы.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.WithError(err).Fatal("main: сервер завершился с ошибкой")
	}
	<-shutdownDone
	logger.Log.Info("main: HTTP сервер остановлен")
}
