package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

const maxLeaderboardLimit = 100

type LeaderboardRequest struct {
	Scope  valueobject.LeaderboardScope
	Value  string
	Period string
	Limit  int
}

// LeaderboardService — производная проекция поверх агрегатов и журнала событий.
// Одинаковые параллельные запросы схлопываются, результат кэшируется на короткий TTL.
type LeaderboardService struct {
	repo         repository.LeaderboardRepository
	cache        *CacheService
	ttl          time.Duration
	defaultLimit int
	group        singleflight.Group
	now          func() time.Time
}

func NewLeaderboardService(repo repository.LeaderboardRepository, cache *CacheService, ttl time.Duration, defaultLimit int) *LeaderboardService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &LeaderboardService{
		repo:         repo,
		cache:        cache,
		ttl:          ttl,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

func (s *LeaderboardService) Top(ctx context.Context, req LeaderboardRequest) ([]entity.LeaderboardEntry, error) {
	if !req.Scope.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная область рейтинга")
	}
	value := strings.TrimSpace(req.Value)
	if req.Scope != valueobject.LeaderboardScopeGlobal && value == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите город или страну")
	}
	if req.Scope == valueobject.LeaderboardScopeGlobal {
		value = ""
	}

	window, err := valueobject.NewLeaderboardWindow(req.Period)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	q := repository.LeaderboardQuery{Scope: req.Scope, Value: value, Limit: limit}
	if since, ok := window.Since(s.now().UTC()); ok {
		q.Since = &since
	}

	if s.cache == nil || s.ttl <= 0 {
		return s.repo.Top(ctx, q)
	}

	key := LeaderboardCacheKey(req.Scope, value, window, limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]entity.LeaderboardEntry), nil
	}

	// Отмена запроса первого вызывающего не должна ронять остальных ждущих.
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.cache.GetOrSet(context.WithoutCancel(ctx), key, s.ttl, func(ctx context.Context) (interface{}, error) {
			return s.repo.Top(ctx, q)
		})
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.LeaderboardEntry), nil
}
