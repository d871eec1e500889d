package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile — данные пользователя из внешнего провайдера идентичности,
// нужные для разбивки рейтинга по городам и странам.
type UserProfile struct {
	ID        uuid.UUID
	FullName  string
	City      string
	Country   string
	CreatedAt time.Time
}

type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	UserID        uuid.UUID `json:"user_id"`
	FullName      string    `json:"full_name"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	Points        int       `json:"points"`
	TotalClears   int       `json:"total_clears"`
	CurrentStreak int       `json:"current_streak"`
	JoinedAt      time.Time `json:"-"`
}

// RanksBefore задаёт порядок рейтинга: очки, затем число уборок, затем более ранняя
// регистрация, затем id для полной детерминированности.
func RanksBefore(a, b LeaderboardEntry) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.TotalClears != b.TotalClears {
		return a.TotalClears > b.TotalClears
	}
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.Before(b.JoinedAt)
	}
	return a.UserID.String() < b.UserID.String()
}
