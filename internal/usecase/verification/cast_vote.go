// Package verification — голосование сообщества за убранные отчёты.
package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/metrics"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

type Scorer interface {
	ApplyEvent(ctx context.Context, in service.ScoreInput) (*service.ScoreResult, error)
	CanVerify(ctx context.Context, userID uuid.UUID) (bool, error)
	Rules() config.Scoring
}

type CastVoteInput struct {
	ReportID   uuid.UUID
	VoterID    uuid.UUID
	IsPositive bool
	Comment    *string
}

type CastVoteResult struct {
	Vote   *entity.VerificationVote
	Report *entity.Report
	// VerifiedNow: этот голос перевёл отчёт в verified.
	VerifiedNow   bool
	PointsAwarded int
}

type CastVoteUseCase struct {
	reports   repository.ReportRepository
	votes     repository.VoteRepository
	tx        repository.Transactor
	scorer    Scorer
	publisher repository.EventPublisher
	threshold int
	now       func() time.Time
}

func NewCastVoteUseCase(
	reports repository.ReportRepository,
	votes repository.VoteRepository,
	tx repository.Transactor,
	scorer Scorer,
	publisher repository.EventPublisher,
	threshold int,
) *CastVoteUseCase {
	return &CastVoteUseCase{
		reports:   reports,
		votes:     votes,
		tx:        tx,
		scorer:    scorer,
		publisher: publisher,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock подменяет источник времени (тесты серий и окон).
func (uc *CastVoteUseCase) WithClock(now func() time.Time) *CastVoteUseCase {
	uc.now = now
	return uc
}

// Execute проверяет условия в фиксированном порядке, затем в одной транзакции
// пишет голос, увеличивает счётчик отчёта (и при достижении порога переводит его
// в verified) и начисляет очки голосующему и, однократно, убравшему.
func (uc *CastVoteUseCase) Execute(ctx context.Context, input CastVoteInput) (*CastVoteResult, error) {
	report, err := uc.reports.FindByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}
	if report.Status != valueobject.ReportStatusCleared {
		return nil, apperror.ErrReportNotCleared
	}
	if report.IsClearedBy(input.VoterID) {
		return nil, apperror.ErrSelfVerification
	}

	eligible, err := uc.scorer.CanVerify(ctx, input.VoterID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, apperror.InsufficientExperience(uc.scorer.Rules().MinClearsToVerify)
	}

	voted, err := uc.votes.Exists(ctx, input.ReportID, input.VoterID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, apperror.ErrDuplicateVote
	}

	now := uc.now()
	vote, err := entity.NewVerificationVote(input.ReportID, input.VoterID, input.IsPositive, input.Comment, now)
	if err != nil {
		return nil, err
	}

	var (
		result CastVoteResult
		events []entity.DomainEvent
	)
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.votes.Append(ctx, vote); err != nil {
			return err
		}

		verifiedNow := false
		updated, err := uc.reports.TryTransition(ctx, input.ReportID, valueobject.ReportStatusCleared, func(r *entity.Report) error {
			v, err := r.RecordVote(input.IsPositive, uc.threshold, now)
			verifiedNow = v
			return err
		})
		if err != nil {
			if errors.Is(err, apperror.ErrStatusConflict) {
				return apperror.ErrReportNotCleared
			}
			return err
		}

		voterRes, err := uc.scorer.ApplyEvent(ctx, service.ScoreInput{
			Kind:     valueobject.ScoreKindVerificationCast,
			UserID:   input.VoterID,
			ReportID: input.ReportID,
			At:       now,
		})
		if err != nil {
			return err
		}

		events = append(events, entity.DomainEvent{
			Type:       entity.EventVoteCast,
			UserID:     input.VoterID,
			ReportID:   &updated.ID,
			Status:     updated.Status,
			OccurredAt: now,
		})
		events = appendPoints(events, voterRes)

		if verifiedNow && updated.ClearedBy != nil {
			clearerRes, err := uc.scorer.ApplyEvent(ctx, service.ScoreInput{
				Kind:     valueobject.ScoreKindVerified,
				UserID:   *updated.ClearedBy,
				ReportID: input.ReportID,
				At:       now,
			})
			if err != nil {
				return err
			}
			events = append(events, entity.ReportEvent(entity.EventReportVerified, *updated.ClearedBy, updated, now))
			events = appendPoints(events, clearerRes)
		}

		result = CastVoteResult{
			Vote:          vote,
			Report:        updated,
			VerifiedNow:   verifiedNow,
			PointsAwarded: voterRes.Points,
		}
		return nil
	})
	if err != nil {
		if apperror.IsConflict(err) || errors.Is(err, apperror.ErrDuplicateVote) {
			metrics.Conflict("vote", string(apperror.CodeOf(err)))
			logger.Log.WithFields(logrus.Fields{
				"report_id": input.ReportID,
				"voter_id":  input.VoterID,
				"code":      apperror.CodeOf(err),
			}).Debug("vote rejected by concurrent change")
		}
		return nil, err
	}

	metrics.Vote(input.IsPositive)
	if result.VerifiedNow {
		metrics.Transition(valueobject.ReportStatusCleared, valueobject.ReportStatusVerified)
	}
	if uc.publisher != nil {
		uc.publisher.Publish(ctx, events...)
	}
	return &result, nil
}

func appendPoints(events []entity.DomainEvent, res *service.ScoreResult) []entity.DomainEvent {
	if res == nil || res.Event == nil || res.Points == 0 {
		return events
	}
	return append(events, entity.PointsEvent(res.Event))
}

type ListVotesUseCase struct {
	reports repository.ReportRepository
	votes   repository.VoteRepository
}

func NewListVotesUseCase(reports repository.ReportRepository, votes repository.VoteRepository) *ListVotesUseCase {
	return &ListVotesUseCase{reports: reports, votes: votes}
}

func (uc *ListVotesUseCase) Execute(ctx context.Context, reportID uuid.UUID) ([]*entity.VerificationVote, error) {
	if _, err := uc.reports.FindByID(ctx, reportID); err != nil {
		return nil, err
	}
	return uc.votes.ListByReport(ctx, reportID)
}
