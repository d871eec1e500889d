package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
)

type SubmitReportRequest struct {
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
	Description *string  `json:"description"`
	PhotoBefore *string  `json:"photo_before"`
	City        *string  `json:"city"`
	Country     *string  `json:"country"`
}

type ClearReportRequest struct {
	PhotoRef string `json:"photo_ref" binding:"required"`
}

type CastVoteRequest struct {
	IsPositive *bool   `json:"is_positive" binding:"required"`
	Comment    *string `json:"comment"`
}

type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ReportResponse struct {
	ID                        uuid.UUID        `json:"id"`
	ReporterID                uuid.UUID        `json:"reporter_id"`
	Location                  LocationResponse `json:"location"`
	Description               *string          `json:"description,omitempty"`
	PhotoBefore               *string          `json:"photo_before,omitempty"`
	City                      *string          `json:"city,omitempty"`
	Country                   *string          `json:"country,omitempty"`
	Status                    string           `json:"status"`
	ClaimedBy                 *uuid.UUID       `json:"claimed_by,omitempty"`
	ClaimedAt                 *time.Time       `json:"claimed_at,omitempty"`
	ClearedBy                 *uuid.UUID       `json:"cleared_by,omitempty"`
	ClearedAt                 *time.Time       `json:"cleared_at,omitempty"`
	PhotoAfter                *string          `json:"photo_after,omitempty"`
	VerificationCountPositive int              `json:"verification_count_positive"`
	VerificationCountNegative int              `json:"verification_count_negative"`
	VerifiedAt                *time.Time       `json:"verified_at,omitempty"`
	CreatedAt                 time.Time        `json:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at"`
}

type ClearReportResponse struct {
	Report        ReportResponse `json:"report"`
	PointsAwarded int            `json:"points_awarded"`
	CurrentStreak int            `json:"current_streak"`
}

type VoteResponse struct {
	ID         uuid.UUID `json:"id"`
	ReportID   uuid.UUID `json:"report_id"`
	VoterID    uuid.UUID `json:"voter_id"`
	IsPositive bool      `json:"is_positive"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type CastVoteResponse struct {
	Vote          VoteResponse   `json:"vote"`
	Report        ReportResponse `json:"report"`
	VerifiedNow   bool           `json:"verified_now"`
	PointsAwarded int            `json:"points_awarded"`
}

func ToReportResponse(r *entity.Report) ReportResponse {
	return ReportResponse{
		ID:         r.ID,
		ReporterID: r.ReporterID,
		Location: LocationResponse{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
		},
		Description:               r.Description,
		PhotoBefore:               r.PhotoBefore,
		City:                      r.City,
		Country:                   r.Country,
		Status:                    string(r.Status),
		ClaimedBy:                 r.ClaimedBy,
		ClaimedAt:                 r.ClaimedAt,
		ClearedBy:                 r.ClearedBy,
		ClearedAt:                 r.ClearedAt,
		PhotoAfter:                r.PhotoAfter,
		VerificationCountPositive: r.VerificationCountPositive,
		VerificationCountNegative: r.VerificationCountNegative,
		VerifiedAt:                r.VerifiedAt,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
	}
}

func ToVoteResponse(v *entity.VerificationVote) VoteResponse {
	return VoteResponse{
		ID:         v.ID,
		ReportID:   v.ReportID,
		VoterID:    v.VoterID,
		IsPositive: v.IsPositive,
		Comment:    v.Comment,
		CreatedAt:  v.CreatedAt,
	}
}

func ToVoteResponses(votes []*entity.VerificationVote) []VoteResponse {
	out := make([]VoteResponse, 0, len(votes))
	for _, v := range votes {
		out = append(out, ToVoteResponse(v))
	}
	return out
}
