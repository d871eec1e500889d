package valueobject

import "github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"

// ReportStatus — закрытый набор статусов отчёта о мусоре.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusClaimed  ReportStatus = "claimed"
	ReportStatusCleared  ReportStatus = "cleared"
	ReportStatusVerified ReportStatus = "verified"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusPending, ReportStatusClaimed, ReportStatusCleared, ReportStatusVerified:
		return true
	}
	return false
}

// CanTransitionTo перечисляет все допустимые рёбра автомата.
// Единственное обратное ребро — снятие брони claimed → pending.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportStatusPending:
		return next == ReportStatusClaimed
	case ReportStatusClaimed:
		return next == ReportStatusPending || next == ReportStatusCleared
	case ReportStatusCleared:
		return next == ReportStatusVerified
	case ReportStatusVerified:
		return false
	}
	return false
}

func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusVerified
}

func NewReportStatus(status string) (ReportStatus, error) {
	s := ReportStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус отчёта")
	}
	return s, nil
}

// ScoreKind задаёт тип события начисления очков.
type ScoreKind string

const (
	ScoreKindCleared          ScoreKind = "cleared"
	ScoreKindVerified         ScoreKind = "verified"
	ScoreKindVerificationCast ScoreKind = "verification_cast"
	ScoreKindReportCreated    ScoreKind = "report_created"
)

func (k ScoreKind) IsValid() bool {
	switch k {
	case ScoreKindCleared, ScoreKindVerified, ScoreKindVerificationCast, ScoreKindReportCreated:
		return true
	}
	return false
}

func NewScoreKind(kind string) (ScoreKind, error) {
	k := ScoreKind(kind)
	if !k.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип начисления")
	}
	return k, nil
}
