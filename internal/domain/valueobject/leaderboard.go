package valueobject

import (
	"time"

	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type LeaderboardScope string

const (
	LeaderboardScopeGlobal  LeaderboardScope = "global"
	LeaderboardScopeCity    LeaderboardScope = "city"
	LeaderboardScopeCountry LeaderboardScope = "country"
)

func (s LeaderboardScope) IsValid() bool {
	switch s {
	case LeaderboardScopeGlobal, LeaderboardScopeCity, LeaderboardScopeCountry:
		return true
	}
	return false
}

type LeaderboardWindow string

const (
	LeaderboardWindowWeekly  LeaderboardWindow = "weekly"
	LeaderboardWindowMonthly LeaderboardWindow = "monthly"
	LeaderboardWindowAllTime LeaderboardWindow = "all_time"
)

// NewLeaderboardWindow разбирает период; пустая строка означает all_time.
func NewLeaderboardWindow(period string) (LeaderboardWindow, error) {
	if period == "" {
		return LeaderboardWindowAllTime, nil
	}
	w := LeaderboardWindow(period)
	switch w {
	case LeaderboardWindowWeekly, LeaderboardWindowMonthly, LeaderboardWindowAllTime:
		return w, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный период, используйте weekly, monthly или all_time")
}

// Since возвращает начало окна; для all_time окна нет.
func (w LeaderboardWindow) Since(now time.Time) (time.Time, bool) {
	switch w {
	case LeaderboardWindowWeekly:
		return now.Add(-7 * 24 * time.Hour), true
	case LeaderboardWindowMonthly:
		return now.Add(-30 * 24 * time.Hour), true
	}
	return time.Time{}, false
}
