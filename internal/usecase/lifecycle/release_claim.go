package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/metrics"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type ReleaseClaimUseCase struct {
	deps Deps
}

func NewReleaseClaimUseCase(deps Deps) *ReleaseClaimUseCase {
	return &ReleaseClaimUseCase{deps: deps}
}

// Execute возвращает отчёт в pending. при actorID == nil бронь снимает система.
func (uc *ReleaseClaimUseCase) Execute(ctx context.Context, reportID uuid.UUID, actorID *uuid.UUID) (*entity.Report, error) {
	return uc.release(ctx, reportID, actorID, nil)
}

// release с notBefore != nil снимает бронь, только если она взята раньше notBefore:
// между выборкой и переходом отчёт могли освободить и взять заново.
func (uc *ReleaseClaimUseCase) release(ctx context.Context, reportID uuid.UUID, actorID *uuid.UUID, notBefore *time.Time) (*entity.Report, error) {
	now := uc.deps.now()

	var formerClaimant uuid.UUID
	report, err := uc.deps.Reports.TryTransition(ctx, reportID, valueobject.ReportStatusClaimed, func(r *entity.Report) error {
		if notBefore != nil && (r.ClaimedAt == nil || !r.ClaimedAt.Before(*notBefore)) {
			return errClaimRenewed
		}
		if r.ClaimedBy != nil {
			formerClaimant = *r.ClaimedBy
		}
		return r.ReleaseClaim(actorID, now)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrStatusConflict) {
			err = apperror.ErrInvalidState
		}
		actor := uuid.Nil
		if actorID != nil {
			actor = *actorID
		}
		logConflict("release", reportID, actor, err)
		return nil, err
	}

	metrics.Transition(valueobject.ReportStatusClaimed, valueobject.ReportStatusPending)
	uc.deps.publish(ctx, []entity.DomainEvent{entity.ReportEvent(entity.EventReportReleased, formerClaimant, report, now)})
	return report, nil
}

var errClaimRenewed = apperror.New(apperror.ErrCodeConflict, "бронь уже обновлена")

type ReleaseStaleClaimsInput struct {
	OlderThan   time.Duration
	BatchSize   int
	Concurrency int
}

type ReleaseStaleClaimsResult struct {
	Scanned  int `json:"scanned"`
	Released int `json:"released"`
	Skipped  int `json:"skipped"`
}

// ReleaseStaleClaimsUseCase вызывается внешним планировщиком истечения брони.
type ReleaseStaleClaimsUseCase struct {
	deps    Deps
	release *ReleaseClaimUseCase
}

func NewReleaseStaleClaimsUseCase(deps Deps) *ReleaseStaleClaimsUseCase {
	return &ReleaseStaleClaimsUseCase{deps: deps, release: NewReleaseClaimUseCase(deps)}
}

func (uc *ReleaseStaleClaimsUseCase) Execute(ctx context.Context, input ReleaseStaleClaimsInput) (*ReleaseStaleClaimsResult, error) {
	if input.OlderThan <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок брони должен быть положительным")
	}
	if input.BatchSize <= 0 {
		input.BatchSize = 500
	}
	if input.Concurrency <= 0 {
		input.Concurrency = 4
	}

	cutoff := uc.deps.now().Add(-input.OlderThan)
	stale, err := uc.deps.Reports.ListClaimedBefore(ctx, cutoff, input.BatchSize)
	if err != nil {
		return nil, err
	}

	var released, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(input.Concurrency)
	for _, r := range stale {
		id := r.ID
		g.Go(func() error {
			_, err := uc.release.release(gctx, id, nil, &cutoff)
			switch {
			case err == nil:
				released.Add(1)
			case apperror.IsConflict(err):
				skipped.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	err = g.Wait()

	res := &ReleaseStaleClaimsResult{
		Scanned:  len(stale),
		Released: int(released.Load()),
		Skipped:  int(skipped.Load()),
	}
	metrics.ClaimsReleased(res.Released)
	logger.Log.WithFields(logrus.Fields{
		"cutoff":   cutoff,
		"scanned":  res.Scanned,
		"released": res.Released,
		"skipped":  res.Skipped,
	}).Info("stale claims processed")

	if err != nil {
		return res, err
	}
	return res, nil
}
