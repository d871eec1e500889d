package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
)

// UserScoreAggregate — кэш агрегатов пользователя. Источник истины — журнал ScoreEvent.
type UserScoreAggregate struct {
	UserID             uuid.UUID
	TotalPoints        int
	TotalReports       int
	TotalClears        int
	TotalVerifications int
	CurrentStreak      int
	LongestStreak      int
	LastClearedDate    *time.Time
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewUserScoreAggregate(userID uuid.UUID, now time.Time) *UserScoreAggregate {
	return &UserScoreAggregate{
		UserID:    userID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RegisterClear учитывает уборку в день at (UTC) и возвращает новую серию.
func (a *UserScoreAggregate) RegisterClear(at time.Time) int {
	day := CalendarDate(at)
	a.CurrentStreak = NextStreak(a.LastClearedDate, a.CurrentStreak, day)
	if a.CurrentStreak > a.LongestStreak {
		a.LongestStreak = a.CurrentStreak
	}
	if a.LastClearedDate == nil || day.After(*a.LastClearedDate) {
		a.LastClearedDate = &day
	}
	a.TotalClears++
	return a.CurrentStreak
}

func (a *UserScoreAggregate) Clone() *UserScoreAggregate {
	c := *a
	c.LastClearedDate = cloneTime(a.LastClearedDate)
	return &c
}

// NextStreak: следующий день продлевает серию, тот же день её не меняет,
// любой разрыв (или первая уборка) начинает серию заново.
func NextStreak(lastCleared *time.Time, current int, day time.Time) int {
	if lastCleared == nil {
		return 1
	}
	diff := int(CalendarDate(day).Sub(CalendarDate(*lastCleared)) / (24 * time.Hour))
	switch {
	case diff <= 0:
		// Повтор в тот же день; уборки "из прошлого" серию не ломают.
		if current < 1 {
			return 1
		}
		return current
	case diff == 1:
		return current + 1
	default:
		return 1
	}
}

// CalendarDate обрезает время до полуночи UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ScoreEvent: неизменяемая запись журнала начислений.
type ScoreEvent struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Points    int
	Kind      valueobject.ScoreKind
	ReportID  *uuid.UUID
	CreatedAt time.Time
}

func NewScoreEvent(userID uuid.UUID, kind valueobject.ScoreKind, reportID *uuid.UUID, points int, now time.Time) *ScoreEvent {
	return &ScoreEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Points:    points,
		Kind:      kind,
		ReportID:  cloneUUID(reportID),
		CreatedAt: now,
	}
}

// DedupKey возвращает ключ идемпотентности; события без отчёта не дедуплицируются.
func (e *ScoreEvent) DedupKey() (string, bool) {
	if e.ReportID == nil {
		return "", false
	}
	return e.UserID.String() + ":" + e.ReportID.String() + ":" + string(e.Kind), true
}
