package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

const reportColumns = `id, reporter_id, latitude, longitude, description, photo_before, city, country, status,
	claimed_by, claimed_at, cleared_by, cleared_at, photo_after,
	verification_count_positive, verification_count_negative, verified_at, version, created_at, updated_at`

type reportRow struct {
	ID                        uuid.UUID  `db:"id"`
	ReporterID                uuid.UUID  `db:"reporter_id"`
	Latitude                  float64    `db:"latitude"`
	Longitude                 float64    `db:"longitude"`
	Description               *string    `db:"description"`
	PhotoBefore               *string    `db:"photo_before"`
	City                      *string    `db:"city"`
	Country                   *string    `db:"country"`
	Status                    string     `db:"status"`
	ClaimedBy                 *uuid.UUID `db:"claimed_by"`
	ClaimedAt                 *time.Time `db:"claimed_at"`
	ClearedBy                 *uuid.UUID `db:"cleared_by"`
	ClearedAt                 *time.Time `db:"cleared_at"`
	PhotoAfter                *string    `db:"photo_after"`
	VerificationCountPositive int        `db:"verification_count_positive"`
	VerificationCountNegative int        `db:"verification_count_negative"`
	VerifiedAt                *time.Time `db:"verified_at"`
	Version                   int64      `db:"version"`
	CreatedAt                 time.Time  `db:"created_at"`
	UpdatedAt                 time.Time  `db:"updated_at"`
}

func (row *reportRow) toEntity() (*entity.Report, error) {
	status, err := valueobject.NewReportStatus(row.Status)
	if err != nil {
		return nil, err
	}
	return &entity.Report{
		ID:                        row.ID,
		ReporterID:                row.ReporterID,
		Location:                  valueobject.Location{Latitude: row.Latitude, Longitude: row.Longitude},
		Description:               row.Description,
		PhotoBefore:               row.PhotoBefore,
		City:                      row.City,
		Country:                   row.Country,
		Status:                    status,
		ClaimedBy:                 row.ClaimedBy,
		ClaimedAt:                 row.ClaimedAt,
		ClearedBy:                 row.ClearedBy,
		ClearedAt:                 row.ClearedAt,
		PhotoAfter:                row.PhotoAfter,
		VerificationCountPositive: row.VerificationCountPositive,
		VerificationCountNegative: row.VerificationCountNegative,
		VerifiedAt:                row.VerifiedAt,
		Version:                   row.Version,
		CreatedAt:                 row.CreatedAt,
		UpdatedAt:                 row.UpdatedAt,
	}, nil
}

type ReportRepository struct {
	tx *Transactor
}

func NewReportRepository(tx *Transactor) *ReportRepository {
	return &ReportRepository{tx: tx}
}

func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (id, reporter_id, latitude, longitude, description, photo_before, city, country,
		                     status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.tx.q(ctx).ExecContext(ctx, query,
		report.ID,
		report.ReporterID,
		report.Location.Latitude,
		report.Location.Longitude,
		report.Description,
		report.PhotoBefore,
		report.City,
		report.Country,
		string(report.Status),
		report.Version,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "reports_pkey") {
			return apperror.New(apperror.ErrCodeConflict, "отчёт уже существует")
		}
		return storeError(err, "report repository: create")
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	var row reportRow
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	if err := r.tx.q(ctx).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, storeError(err, "report repository: get by id")
	}
	return row.toEntity()
}

// TryTransition — CAS по версии. Если строку успели изменить без смены статуса
// (например, параллельный голос), перечитывает и повторяет не более MaxVersionRetries раз.
func (r *ReportRepository) TryTransition(ctx context.Context, id uuid.UUID, expected valueobject.ReportStatus, mutation repository.ReportMutation) (*entity.Report, error) {
	var out *entity.Report
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for attempt := 0; attempt <= repository.MaxVersionRetries; attempt++ {
			cur, err := r.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if cur.Status != expected {
				return apperror.ErrStatusConflict
			}

			next := cur.Clone()
			if err := mutation(next); err != nil {
				return err
			}
			if next.Status != cur.Status && !cur.Status.CanTransitionTo(next.Status) {
				return apperror.ErrIllegalTransition
			}
			next.Version = cur.Version + 1

			ok, err := r.compareAndSwap(ctx, cur.Version, next)
			if err != nil {
				return err
			}
			if ok {
				out = next
				return nil
			}
		}
		return apperror.ErrStatusConflict
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReportRepository) compareAndSwap(ctx context.Context, expectedVersion int64, next *entity.Report) (bool, error) {
	query := `
		UPDATE reports
		SET status = $3, claimed_by = $4, claimed_at = $5, cleared_by = $6, cleared_at = $7, photo_after = $8,
		    verification_count_positive = $9, verification_count_negative = $10, verified_at = $11,
		    version = $12, updated_at = $13
		WHERE id = $1 AND version = $2
	`
	res, err := r.tx.q(ctx).ExecContext(ctx, query,
		next.ID,
		expectedVersion,
		string(next.Status),
		next.ClaimedBy,
		next.ClaimedAt,
		next.ClearedBy,
		next.ClearedAt,
		next.PhotoAfter,
		next.VerificationCountPositive,
		next.VerificationCountNegative,
		next.VerifiedAt,
		next.Version,
		next.UpdatedAt,
	)
	if err != nil {
		return false, storeError(err, "report repository: compare and swap")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError(err, "report repository: rows affected")
	}
	return n == 1, nil
}

func (r *ReportRepository) ListClaimedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Report, error) {
	var rows []reportRow
	query := `SELECT ` + reportColumns + `
		FROM reports
		WHERE status = 'claimed' AND claimed_at < $1
		ORDER BY claimed_at
		LIMIT $2`
	if err := r.tx.q(ctx).SelectContext(ctx, &rows, query, cutoff, limit); err != nil {
		return nil, storeError(err, "report repository: list claimed before")
	}

	out := make([]*entity.Report, 0, len(rows))
	for i := range rows {
		rep, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

type SpatialIndex struct {
	tx *Transactor
}

func NewSpatialIndex(tx *Transactor) *SpatialIndex {
	return &SpatialIndex{tx: tx}
}

// NearbyClearedWithin использует PostGIS: geography измеряет расстояние в метрах.
func (x *SpatialIndex) NearbyClearedWithin(ctx context.Context, point valueobject.Location, radiusKm float64, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT id
		FROM reports
		WHERE cleared_at IS NOT NULL
		  AND cleared_at > $1
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
		ORDER BY id
	`
	if err := x.tx.q(ctx).SelectContext(ctx, &ids, query, since, point.Longitude, point.Latitude, radiusKm*1000); err != nil {
		return nil, storeError(err, "spatial index: nearby cleared")
	}
	return ids, nil
}
