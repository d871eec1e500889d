package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
)

type ScoreResponse struct {
	UserID             uuid.UUID `json:"user_id"`
	TotalPoints        int       `json:"total_points"`
	TotalReports       int       `json:"total_reports"`
	TotalClears        int       `json:"total_clears"`
	TotalVerifications int       `json:"total_verifications"`
	CurrentStreak      int       `json:"current_streak"`
	LongestStreak      int       `json:"longest_streak"`
	LastClearedDate    *string   `json:"last_cleared_date,omitempty"`
	CanVerify          bool      `json:"can_verify"`
}

type ScoreEventResponse struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Points    int        `json:"points"`
	ReportID  *uuid.UUID `json:"report_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type LeaderboardResponse struct {
	Scope   string                    `json:"scope"`
	Value   string                    `json:"value,omitempty"`
	Period  string                    `json:"period"`
	Entries []entity.LeaderboardEntry `json:"entries"`
}

func ToScoreResponse(a *entity.UserScoreAggregate, minClearsToVerify int) ScoreResponse {
	var last *string
	if a.LastClearedDate != nil {
		v := a.LastClearedDate.Format("2006-01-02")
		last = &v
	}
	return ScoreResponse{
		UserID:             a.UserID,
		TotalPoints:        a.TotalPoints,
		TotalReports:       a.TotalReports,
		TotalClears:        a.TotalClears,
		TotalVerifications: a.TotalVerifications,
		CurrentStreak:      a.CurrentStreak,
		LongestStreak:      a.LongestStreak,
		LastClearedDate:    last,
		CanVerify:          a.TotalClears >= minClearsToVerify,
	}
}

func ToScoreEventResponses(events []*entity.ScoreEvent) []ScoreEventResponse {
	out := make([]ScoreEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, ScoreEventResponse{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Points:    e.Points,
			ReportID:  e.ReportID,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
