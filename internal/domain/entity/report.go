package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type Report struct {
	ID                        uuid.UUID
	ReporterID                uuid.UUID
	Location                  valueobject.Location
	Description               *string
	PhotoBefore               *string
	City                      *string
	Country                   *string
	Status                    valueobject.ReportStatus
	ClaimedBy                 *uuid.UUID
	ClaimedAt                 *time.Time
	ClearedBy                 *uuid.UUID
	ClearedAt                 *time.Time
	PhotoAfter                *string
	VerificationCountPositive int
	VerificationCountNegative int
	VerifiedAt                *time.Time
	Version                   int64
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type NewReportInput struct {
	ReporterID  uuid.UUID
	Latitude    float64
	Longitude   float64
	Description *string
	PhotoBefore *string
	City        *string
	Country     *string
}

func NewReport(in NewReportInput, now time.Time) (*Report, error) {
	if in.ReporterID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "автор отчёта обязателен")
	}

	loc, err := valueobject.NewLocation(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	return &Report{
		ID:          uuid.New(),
		ReporterID:  in.ReporterID,
		Location:    loc,
		Description: trimmedOrNil(in.Description),
		PhotoBefore: trimmedOrNil(in.PhotoBefore),
		City:        trimmedOrNil(in.City),
		Country:     trimmedOrNil(in.Country),
		Status:      valueobject.ReportStatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Claim бронирует отчёт за исполнителем.
func (r *Report) Claim(actorID uuid.UUID, now time.Time) error {
	if r.Status != valueobject.ReportStatusPending {
		return apperror.ErrAlreadyClaimed
	}
	if actorID == r.ReporterID {
		return apperror.ErrCannotClaimOwnReport
	}
	if err := r.moveTo(valueobject.ReportStatusClaimed, now); err != nil {
		return err
	}
	r.ClaimedBy = &actorID
	r.ClaimedAt = &now
	return nil
}

// Clear фиксирует уборку. Очистить может только тот, кто взял отчёт.
func (r *Report) Clear(actorID uuid.UUID, photoRef string, now time.Time) error {
	if r.Status != valueobject.ReportStatusClaimed {
		return apperror.ErrInvalidState
	}
	if !r.IsClaimedBy(actorID) {
		return apperror.ErrNotOwner
	}
	photoRef = strings.TrimSpace(photoRef)
	if photoRef == "" {
		return apperror.ErrPhotoRequired
	}
	if err := r.moveTo(valueobject.ReportStatusCleared, now); err != nil {
		return err
	}
	r.ClearedBy = &actorID
	r.ClearedAt = &now
	r.PhotoAfter = &photoRef
	return nil
}

// ReleaseClaim возвращает отчёт в pending. actorID == nil означает системный вызов
// (истечение брони по расписанию).
func (r *Report) ReleaseClaim(actorID *uuid.UUID, now time.Time) error {
	if r.Status != valueobject.ReportStatusClaimed {
		return apperror.ErrInvalidState
	}
	if actorID != nil && !r.IsClaimedBy(*actorID) {
		return apperror.ErrNotOwner
	}
	if err := r.moveTo(valueobject.ReportStatusPending, now); err != nil {
		return err
	}
	r.ClaimedBy = nil
	r.ClaimedAt = nil
	return nil
}

// RecordVote учитывает голос и, если набран порог положительных голосов,
// переводит отчёт в verified. Возвращает true только для голоса, который
// совершил переход.
func (r *Report) RecordVote(positive bool, threshold int, now time.Time) (bool, error) {
	if r.Status != valueobject.ReportStatusCleared {
		return false, apperror.ErrReportNotCleared
	}

	if positive {
		r.VerificationCountPositive++
	} else {
		r.VerificationCountNegative++
	}
	r.UpdatedAt = now

	if !positive || r.VerificationCountPositive < threshold {
		return false, nil
	}
	if err := r.moveTo(valueobject.ReportStatusVerified, now); err != nil {
		return false, err
	}
	r.VerifiedAt = &now
	return true, nil
}

func (r *Report) IsClaimedBy(userID uuid.UUID) bool {
	return r.ClaimedBy != nil && *r.ClaimedBy == userID
}

func (r *Report) IsClearedBy(userID uuid.UUID) bool {
	return r.ClearedBy != nil && *r.ClearedBy == userID
}

// Clone возвращает глубокую копию, чтобы мутации не были видны до записи.
func (r *Report) Clone() *Report {
	c := *r
	c.Description = cloneString(r.Description)
	c.PhotoBefore = cloneString(r.PhotoBefore)
	c.City = cloneString(r.City)
	c.Country = cloneString(r.Country)
	c.PhotoAfter = cloneString(r.PhotoAfter)
	c.ClaimedBy = cloneUUID(r.ClaimedBy)
	c.ClearedBy = cloneUUID(r.ClearedBy)
	c.ClaimedAt = cloneTime(r.ClaimedAt)
	c.ClearedAt = cloneTime(r.ClearedAt)
	c.VerifiedAt = cloneTime(r.VerifiedAt)
	return &c
}

func (r *Report) moveTo(next valueobject.ReportStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return apperror.ErrIllegalTransition
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
