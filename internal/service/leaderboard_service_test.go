package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type mockLeaderboardRepo struct {
	mock.Mock
}

func (m *mockLeaderboardRepo) Top(ctx context.Context, q repository.LeaderboardQuery) ([]entity.LeaderboardEntry, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LeaderboardEntry), args.Error(1)
}

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newLeaderboard(cache *CacheService) (*LeaderboardService, *mockLeaderboardRepo) {
	repo := new(mockLeaderboardRepo)
	svc := NewLeaderboardService(repo, cache, time.Minute, 20)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestLeaderboardService_Validation(t *testing.T) {
	svc, repo := newLeaderboard(nil)

	tests := []struct {
		name string
		req  LeaderboardRequest
	}{
		{"unknown scope", LeaderboardRequest{Scope: "planet"}},
		{"city without value", LeaderboardRequest{Scope: valueobject.LeaderboardScopeCity, Value: "  "}},
		{"country without value", LeaderboardRequest{Scope: valueobject.LeaderboardScopeCountry}},
		{"unknown period", LeaderboardRequest{Scope: valueobject.LeaderboardScopeGlobal, Period: "yearly"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Top(context.Background(), tt.req)
			assert.True(t, apperror.IsValidation(err))
		})
	}
	repo.AssertNotCalled(t, "Top", mock.Anything, mock.Anything)
}

func TestLeaderboardService_BuildsQuery(t *testing.T) {
	weekAgo := fixedNow.Add(-7 * 24 * time.Hour)
	monthAgo := fixedNow.Add(-30 * 24 * time.Hour)

	tests := []struct {
		name string
		req  LeaderboardRequest
		want repository.LeaderboardQuery
	}{
		{
			name: "global ignores value, default limit",
			req:  LeaderboardRequest{Scope: valueobject.LeaderboardScopeGlobal, Value: "Berlin"},
			want: repository.LeaderboardQuery{Scope: valueobject.LeaderboardScopeGlobal, Limit: 20},
		},
		{
			name: "city weekly, limit clamped",
			req:  LeaderboardRequest{Scope: valueobject.LeaderboardScopeCity, Value: " Berlin ", Period: "weekly", Limit: 500},
			want: repository.LeaderboardQuery{Scope: valueobject.LeaderboardScopeCity, Value: "Berlin", Since: &weekAgo, Limit: 100},
		},
		{
			name: "country monthly",
			req:  LeaderboardRequest{Scope: valueobject.LeaderboardScopeCountry, Value: "DE", Period: "monthly", Limit: 5},
			want: repository.LeaderboardQuery{Scope: valueobject.LeaderboardScopeCountry, Value: "DE", Since: &monthAgo, Limit: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newLeaderboard(nil)
			repo.On("Top", mock.Anything, tt.want).Return([]entity.LeaderboardEntry{}, nil).Once()

			_, err := svc.Top(context.Background(), tt.req)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestLeaderboardService_CachesResult(t *testing.T) {
	cache := NewCacheService(time.Minute)
	defer cache.Close()
	svc, repo := newLeaderboard(cache)

	entries := []entity.LeaderboardEntry{{Rank: 1, UserID: uuid.New(), Points: 50}}
	repo.On("Top", mock.Anything, mock.Anything).Return(entries, nil).Once()

	req := LeaderboardRequest{Scope: valueobject.LeaderboardScopeCity, Value: "Berlin"}
	for i := 0; i < 3; i++ {
		got, err := svc.Top(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, entries, got)
	}

	// Регистр значения не создаёт отдельную запись кэша.
	_, err := svc.Top(context.Background(), LeaderboardRequest{Scope: valueobject.LeaderboardScopeCity, Value: "BERLIN"})
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Top", 1)
}

func TestLeaderboardService_CollapsesConcurrentRequests(t *testing.T) {
	cache := NewCacheService(time.Minute)
	defer cache.Close()
	svc, repo := newLeaderboard(cache)

	release := make(chan time.Time)
	repo.On("Top", mock.Anything, mock.Anything).
		Return([]entity.LeaderboardEntry{}, nil).
		WaitUntil(release).
		Once()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Top(context.Background(), LeaderboardRequest{Scope: valueobject.LeaderboardScopeGlobal})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	repo.AssertNumberOfCalls(t, "Top", 1)
}

func TestLeaderboardService_ErrorsAreNotCached(t *testing.T) {
	cache := NewCacheService(time.Minute)
	defer cache.Close()
	svc, repo := newLeaderboard(cache)

	repo.On("Top", mock.Anything, mock.Anything).Return(nil, apperror.Unavailable(errors.New("down"), "хранилище недоступно")).Once()
	repo.On("Top", mock.Anything, mock.Anything).Return([]entity.LeaderboardEntry{}, nil).Once()

	req := LeaderboardRequest{Scope: valueobject.LeaderboardScopeGlobal}
	_, err := svc.Top(context.Background(), req)
	assert.Error(t, err)

	_, err = svc.Top(context.Background(), req)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
