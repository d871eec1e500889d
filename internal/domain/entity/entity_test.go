package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *Report {
	t.Helper()
	r, err := NewReport(NewReportInput{ReporterID: uuid.New(), Latitude: 52.5, Longitude: 13.4}, t0)
	require.NoError(t, err)
	return r
}

func TestNewReport(t *testing.T) {
	blank := "   "
	r, err := NewReport(NewReportInput{ReporterID: uuid.New(), Latitude: 1, Longitude: 2, Description: &blank}, t0)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusPending, r.Status)
	assert.Nil(t, r.Description)
	assert.Equal(t, int64(1), r.Version)

	_, err = NewReport(NewReportInput{Latitude: 1, Longitude: 2}, t0)
	assert.True(t, apperror.IsValidation(err))

	_, err = NewReport(NewReportInput{ReporterID: uuid.New(), Latitude: 100}, t0)
	assert.True(t, apperror.IsValidation(err))
}

func TestReport_Lifecycle(t *testing.T) {
	r := newPending(t)
	a := uuid.New()

	assert.ErrorIs(t, r.Claim(r.ReporterID, t0), apperror.ErrCannotClaimOwnReport)

	require.NoError(t, r.Claim(a, t0))
	assert.True(t, r.IsClaimedBy(a))
	assert.ErrorIs(t, r.Claim(uuid.New(), t0), apperror.ErrAlreadyClaimed)

	assert.ErrorIs(t, r.Clear(uuid.New(), "p.jpg", t0), apperror.ErrNotOwner)
	assert.ErrorIs(t, r.Clear(a, "  ", t0), apperror.ErrPhotoRequired)

	require.NoError(t, r.Clear(a, "p.jpg", t0.Add(time.Hour)))
	assert.Equal(t, valueobject.ReportStatusCleared, r.Status)
	assert.True(t, r.IsClearedBy(a))
	require.NotNil(t, r.ClaimedBy)
	assert.Equal(t, "p.jpg", *r.PhotoAfter)

	assert.ErrorIs(t, r.ReleaseClaim(nil, t0), apperror.ErrInvalidState)
}

func TestReport_ReleaseClaim(t *testing.T) {
	r := newPending(t)
	a := uuid.New()
	require.NoError(t, r.Claim(a, t0))

	other := uuid.New()
	assert.ErrorIs(t, r.ReleaseClaim(&other, t0), apperror.ErrNotOwner)

	require.NoError(t, r.ReleaseClaim(&a, t0))
	assert.Equal(t, valueobject.ReportStatusPending, r.Status)
	assert.Nil(t, r.ClaimedBy)
	assert.Nil(t, r.ClaimedAt)

	require.NoError(t, r.Claim(other, t0))
	require.NoError(t, r.ReleaseClaim(nil, t0))
}

func TestReport_RecordVote(t *testing.T) {
	r := newPending(t)
	a := uuid.New()
	require.NoError(t, r.Claim(a, t0))
	require.NoError(t, r.Clear(a, "p.jpg", t0))

	verified, err := r.RecordVote(false, 3, t0)
	require.NoError(t, err)
	assert.False(t, verified)

	for i := 0; i < 2; i++ {
		verified, err = r.RecordVote(true, 3, t0)
		require.NoError(t, err)
		assert.False(t, verified)
	}

	verified, err = r.RecordVote(true, 3, t0)
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, valueobject.ReportStatusVerified, r.Status)
	assert.Equal(t, 3, r.VerificationCountPositive)
	assert.Equal(t, 1, r.VerificationCountNegative)
	require.NotNil(t, r.VerifiedAt)

	_, err = r.RecordVote(true, 3, t0)
	assert.ErrorIs(t, err, apperror.ErrReportNotCleared)
}

func TestReport_CloneIsDeep(t *testing.T) {
	r := newPending(t)
	a := uuid.New()
	require.NoError(t, r.Claim(a, t0))

	c := r.Clone()
	*c.ClaimedBy = uuid.New()
	*c.ClaimedAt = t0.Add(time.Hour)

	assert.Equal(t, a, *r.ClaimedBy)
	assert.Equal(t, t0, *r.ClaimedAt)
}

func TestNextStreak(t *testing.T) {
	d := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, 1, NextStreak(nil, 0, d))

	last := CalendarDate(d)
	assert.Equal(t, 2, NextStreak(&last, 1, d.Add(time.Minute)), "next calendar day extends")
	assert.Equal(t, 1, NextStreak(&last, 4, d.Add(48*time.Hour)), "a gap resets")
	assert.Equal(t, 3, NextStreak(&last, 3, d.Add(-time.Hour)), "same day keeps")
}

func TestUserScoreAggregate_RegisterClear(t *testing.T) {
	agg := NewUserScoreAggregate(uuid.New(), t0)

	assert.Equal(t, 1, agg.RegisterClear(t0))
	assert.Equal(t, 1, agg.RegisterClear(t0.Add(2*time.Hour)))
	assert.Equal(t, 2, agg.RegisterClear(t0.Add(24*time.Hour)))
	assert.Equal(t, 1, agg.RegisterClear(t0.Add(72*time.Hour)))

	assert.Equal(t, 4, agg.TotalClears)
	assert.Equal(t, 2, agg.LongestStreak)
	assert.Equal(t, 1, agg.CurrentStreak)
	assert.Equal(t, CalendarDate(t0.Add(72*time.Hour)), *agg.LastClearedDate)
}

func TestNewVerificationVote(t *testing.T) {
	_, err := NewVerificationVote(uuid.New(), uuid.New(), false, nil, t0)
	assert.ErrorIs(t, err, apperror.ErrCommentRequired)

	blank := "  "
	_, err = NewVerificationVote(uuid.New(), uuid.New(), false, &blank, t0)
	assert.ErrorIs(t, err, apperror.ErrCommentRequired)

	comment := " мусор остался "
	v, err := NewVerificationVote(uuid.New(), uuid.New(), false, &comment, t0)
	require.NoError(t, err)
	assert.Equal(t, "мусор остался", *v.Comment)

	v, err = NewVerificationVote(uuid.New(), uuid.New(), true, nil, t0)
	require.NoError(t, err)
	assert.Nil(t, v.Comment)
}

func TestScoreEvent_DedupKey(t *testing.T) {
	reportID := uuid.New()
	e := NewScoreEvent(uuid.New(), valueobject.ScoreKindCleared, &reportID, 10, t0)
	key, ok := e.DedupKey()
	assert.True(t, ok)
	assert.Contains(t, key, reportID.String())

	_, ok = NewScoreEvent(uuid.New(), valueobject.ScoreKindCleared, nil, 10, t0).DedupKey()
	assert.False(t, ok)
}

func TestRanksBefore(t *testing.T) {
	early := LeaderboardEntry{UserID: uuid.New(), Points: 50, TotalClears: 3, JoinedAt: t0}
	late := LeaderboardEntry{UserID: uuid.New(), Points: 50, TotalClears: 3, JoinedAt: t0.Add(time.Hour)}
	moreClears := LeaderboardEntry{UserID: uuid.New(), Points: 50, TotalClears: 4, JoinedAt: t0.Add(2 * time.Hour)}
	top := LeaderboardEntry{UserID: uuid.New(), Points: 60}

	assert.True(t, RanksBefore(top, moreClears))
	assert.True(t, RanksBefore(moreClears, early))
	assert.True(t, RanksBefore(early, late))
	assert.False(t, RanksBefore(late, early))
}
