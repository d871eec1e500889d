// Package app собирает хранилище, сервисы и сценарии для сервера и littyctl.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/db"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/littypicky-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/service"
	"github.com/ignatzorin/littypicky-backend/internal/usecase/lifecycle"
	"github.com/ignatzorin/littypicky-backend/internal/usecase/verification"
)

// Stores хранит набор репозиториев над одним хранилищем.
type Stores struct {
	DB          *sqlx.DB
	Tx          repository.Transactor
	Reports     repository.ReportRepository
	Spatial     repository.SpatialIndex
	Votes       repository.VoteRepository
	Scores      repository.ScoreRepository
	Leaderboard repository.LeaderboardRepository
	Users       repository.UserRepository
}

// NewMemoryStores собирает репозитории над хранилищем в памяти.
func NewMemoryStores() *Stores {
	s := memory.NewStore()
	return &Stores{
		Tx:          s,
		Reports:     memory.NewReportRepository(s),
		Spatial:     memory.NewSpatialIndex(s),
		Votes:       memory.NewVoteRepository(s),
		Scores:      memory.NewScoreRepository(s),
		Leaderboard: memory.NewLeaderboardRepository(s),
		Users:       memory.NewUserRepository(s),
	}
}

// NewPostgresStores собирает репозитории над уже открытым соединением.
func NewPostgresStores(conn *sqlx.DB, cfg *config.Config) *Stores {
	tx := persistence.NewTransactor(conn, cfg.DBLockTimeout)
	return &Stores{
		DB:          conn,
		Tx:          tx,
		Reports:     persistence.NewReportRepository(tx),
		Spatial:     persistence.NewSpatialIndex(tx),
		Votes:       persistence.NewVoteRepository(tx),
		Scores:      persistence.NewScoreRepository(tx),
		Leaderboard: persistence.NewLeaderboardRepository(tx),
		Users:       persistence.NewUserRepository(tx),
	}
}

// OpenStores открывает хранилище, выбранное STORE_DRIVER. Для Postgres при
// migrate == true применяются миграции из MIGRATIONS_PATH.
func OpenStores(ctx context.Context, cfg *config.Config, migrate bool) (*Stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Log.Warn("Using in-memory store, data will be lost on restart")
		return NewMemoryStores(), nil
	}

	conn, err := OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if migrate {
		applied, err := db.RunMigrations(ctx, conn, os.DirFS(cfg.MigrationsPath))
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		for _, name := range applied {
			logger.Log.WithField("migration", name).Info("Migration applied")
		}
	}

	return NewPostgresStores(conn, cfg), nil
}

func OpenPostgres(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("app: подключение к базе: %w", err)
	}
	return conn, nil
}

func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Core собирает доменные сервисы и сценарии поверх Stores.
type Core struct {
	Scoring      *service.ScoringService
	Lifecycle    lifecycle.Deps
	CastVote     *verification.CastVoteUseCase
	ListVotes    *verification.ListVotesUseCase
	ReleaseStale *lifecycle.ReleaseStaleClaimsUseCase
}

// NewCore связывает сценарии; publisher может быть nil (CLI не рассылает события).
func NewCore(stores *Stores, rules config.Scoring, publisher repository.EventPublisher) *Core {
	scoring := service.NewScoringService(stores.Scores, stores.Spatial, rules)
	deps := lifecycle.Deps{
		Reports:   stores.Reports,
		Tx:        stores.Tx,
		Scorer:    scoring,
		Publisher: publisher,
	}

	return &Core{
		Scoring:   scoring,
		Lifecycle: deps,
		CastVote: verification.NewCastVoteUseCase(
			stores.Reports, stores.Votes, stores.Tx, scoring, publisher, rules.MinVerificationsNeeded,
		),
		ListVotes:    verification.NewListVotesUseCase(stores.Reports, stores.Votes),
		ReleaseStale: lifecycle.NewReleaseStaleClaimsUseCase(deps),
	}
}
