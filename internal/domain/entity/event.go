package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
)

type EventType string

const (
	EventReportSubmitted EventType = "report.submitted"
	EventReportClaimed   EventType = "report.claimed"
	EventReportReleased  EventType = "report.released"
	EventReportCleared   EventType = "report.cleared"
	EventReportVerified  EventType = "report.verified"
	EventVoteCast        EventType = "vote.cast"
	EventPointsAwarded   EventType = "points.awarded"
)

// DomainEvent публикуется только после фиксации транзакции.
type DomainEvent struct {
	Type       EventType                `json:"type"`
	UserID     uuid.UUID                `json:"user_id"`
	ReportID   *uuid.UUID               `json:"report_id,omitempty"`
	Status     valueobject.ReportStatus `json:"status,omitempty"`
	ScoreKind  valueobject.ScoreKind    `json:"score_kind,omitempty"`
	Points     int                      `json:"points,omitempty"`
	OccurredAt time.Time                `json:"occurred_at"`
}

func ReportEvent(t EventType, userID uuid.UUID, r *Report, at time.Time) DomainEvent {
	id := r.ID
	return DomainEvent{
		Type:       t,
		UserID:     userID,
		ReportID:   &id,
		Status:     r.Status,
		OccurredAt: at,
	}
}

func PointsEvent(e *ScoreEvent) DomainEvent {
	return DomainEvent{
		Type:       EventPointsAwarded,
		UserID:     e.UserID,
		ReportID:   cloneUUID(e.ReportID),
		ScoreKind:  e.Kind,
		Points:     e.Points,
		OccurredAt: e.CreatedAt,
	}
}
