package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/database"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCheckInService(t *testing.T) (*CheckInService, *gorm.DB) {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	return NewCheckInService(db, NewOutcomeService(db)), db
}

func validBody() dto.CheckInBody {
	return dto.CheckInBody{Stress: 6, SleepQuality: 5, Energy: 4, TimeAvailableMin: 25}
}

func TestSubmitStoresCheckInAndEvent(t *testing.T) {
	svc, db := newCheckInService(t)
	userID := uuid.New()

	row, err := svc.Submit(userID, "2026-08-31", validBody())
	require.NoError(t, err)
	assert.Equal(t, "checkin", row.Source)

	var events int64
	require.NoError(t, db.Model(&models.EventLogEntry{}).
		Where("user_id = ? AND type = ?", userID, models.EventCheckinSubmitted).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestSubmitRejectsOutOfRange(t *testing.T) {
	svc, _ := newCheckInService(t)
	userID := uuid.New()

	bad := []dto.CheckInBody{
		{Stress: 11, SleepQuality: 5, Energy: 5, TimeAvailableMin: 20},
		{Stress: -1, SleepQuality: 5, Energy: 5, TimeAvailableMin: 20},
		{Stress: 5, SleepQuality: 5, Energy: 5, TimeAvailableMin: -10},
		{Stress: 5, SleepQuality: 12, Energy: 5, TimeAvailableMin: 20},
	}
	for _, body := range bad {
		_, err := svc.Submit(userID, "2026-08-31", body)
		assert.ErrorIs(t, err, ErrInvalidCheckIn)
	}

	_, err := svc.Submit(userID, "2026-8-31", validBody())
	assert.ErrorIs(t, err, ErrInvalidDateKey)
	_, err = svc.Submit(userID, "2026-13-40", validBody())
	assert.ErrorIs(t, err, ErrInvalidDateKey)
}

func TestSubmitTwiceKeepsOneEventPerDay(t *testing.T) {
	svc, db := newCheckInService(t)
	userID := uuid.New()

	_, err := svc.Submit(userID, "2026-08-31", validBody())
	require.NoError(t, err)
	_, err = svc.Submit(userID, "2026-08-31", dto.CheckInBody{Stress: 2, SleepQuality: 8, Energy: 8, TimeAvailableMin: 45})
	require.NoError(t, err)

	var checkins, events int64
	require.NoError(t, db.Model(&models.CheckIn{}).Where("user_id = ?", userID).Count(&checkins).Error)
	require.NoError(t, db.Model(&models.EventLogEntry{}).Where("user_id = ?", userID).Count(&events).Error)
	assert.Equal(t, int64(2), checkins)
	assert.Equal(t, int64(1), events)

	// The newest submission supersedes the first.
	latest, err := svc.Latest(userID, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Stress)
}

func TestQuickAdjustOverlays(t *testing.T) {
	tests := []struct {
		signal string
		check  func(t *testing.T, row *models.CheckIn)
	}{
		{dto.QuickStressed, func(t *testing.T, row *models.CheckIn) { assert.Equal(t, 9, row.Stress) }},
		{dto.QuickExhausted, func(t *testing.T, row *models.CheckIn) { assert.Equal(t, 1, row.Energy) }},
		{dto.QuickTenMinutes, func(t *testing.T, row *models.CheckIn) { assert.Equal(t, 10, row.TimeAvailableMin) }},
		{dto.QuickMoreEnergy, func(t *testing.T, row *models.CheckIn) { assert.Equal(t, 6, row.Energy) }},
	}
	for _, tt := range tests {
		t.Run(tt.signal, func(t *testing.T) {
			svc, _ := newCheckInService(t)
			userID := uuid.New()
			_, err := svc.Submit(userID, "2026-08-31", validBody())
			require.NoError(t, err)

			row, err := svc.QuickAdjust(userID, "2026-08-31", tt.signal)
			require.NoError(t, err)
			assert.Equal(t, "quick", row.Source)
			tt.check(t, row)
		})
	}
}

func TestQuickAdjustWithoutCheckInUsesBaseline(t *testing.T) {
	svc, _ := newCheckInService(t)
	userID := uuid.New()

	row, err := svc.QuickAdjust(userID, "2026-08-31", dto.QuickStressed)
	require.NoError(t, err)
	assert.Equal(t, 8, row.Stress) // baseline 5 + 3
	assert.Equal(t, 5, row.SleepQuality)
	assert.Equal(t, 20, row.TimeAvailableMin)
}

func TestQuickAdjustClampsAtBounds(t *testing.T) {
	svc, _ := newCheckInService(t)
	userID := uuid.New()
	_, err := svc.Submit(userID, "2026-08-31", dto.CheckInBody{Stress: 9, SleepQuality: 5, Energy: 1, TimeAvailableMin: 20})
	require.NoError(t, err)

	row, err := svc.QuickAdjust(userID, "2026-08-31", dto.QuickStressed)
	require.NoError(t, err)
	assert.Equal(t, 10, row.Stress)

	row, err = svc.QuickAdjust(userID, "2026-08-31", dto.QuickExhausted)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Energy)
}

func TestQuickAdjustUnknownSignal(t *testing.T) {
	svc, _ := newCheckInService(t)
	_, err := svc.QuickAdjust(uuid.New(), "2026-08-31", "caffeinated")
	assert.ErrorIs(t, err, ErrInvalidQuick)
}

func TestCompleteResetOncePerDay(t *testing.T) {
	svc, db := newCheckInService(t)
	userID := uuid.New()

	created, err := svc.CompleteReset(userID, "2026-08-31", "reset-box-breath")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CompleteReset(userID, "2026-08-31", "reset-box-breath")
	require.NoError(t, err)
	assert.False(t, created)

	var events int64
	require.NoError(t, db.Model(&models.EventLogEntry{}).
		Where("user_id = ? AND type = ?", userID, models.EventResetCompleted).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)

	// A new day gets a new completion.
	created, err = svc.CompleteReset(userID, "2026-09-01", "reset-box-breath")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestFeedbackReasonWhitelist(t *testing.T) {
	svc, _ := newCheckInService(t)
	userID := uuid.New()

	require.NoError(t, svc.Feedback(userID, "2026-08-31", true, ""))
	require.NoError(t, svc.Feedback(userID, "2026-08-31", false, "too_long"))

	err := svc.Feedback(userID, "2026-08-31", false, "hated_it")
	assert.ErrorIs(t, err, ErrInvalidFeedback)
	err = svc.Feedback(userID, "2026-08-31", false, "")
	assert.ErrorIs(t, err, ErrInvalidFeedback)
	err = svc.Feedback(userID, "2026-08-31", true, "hated_it")
	assert.ErrorIs(t, err, ErrInvalidFeedback)
}

func TestOutcomeSummaryCountsDistinctDays(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	outcomes := NewOutcomeService(db)
	svc := NewCheckInService(db, outcomes)
	userID := uuid.New()

	_, err = svc.Submit(userID, "2026-08-29", validBody())
	require.NoError(t, err)
	_, err = svc.Submit(userID, "2026-08-30", validBody())
	require.NoError(t, err)
	_, err = svc.Submit(userID, "2026-08-30", validBody()) // same day again
	require.NoError(t, err)
	_, err = svc.CompleteReset(userID, "2026-08-30", "reset-box-breath")
	require.NoError(t, err)
	_, err = svc.Submit(userID, "2026-08-01", validBody()) // outside the window
	require.NoError(t, err)

	summary, err := outcomes.Summary(userID, 14, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.CheckinSubmittedDays)
	assert.Equal(t, 1, summary.ResetCompletedDays)
	assert.Equal(t, 0, summary.RailOpenedDays)
}

func TestOutcomeSummaryCacheInvalidation(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	outcomes := NewOutcomeService(db)
	svc := NewCheckInService(db, outcomes)
	userID := uuid.New()

	summary, err := outcomes.Summary(userID, 14, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CheckinSubmittedDays)

	// A new event must bust the cached zero.
	_, err = svc.Submit(userID, "2026-08-31", validBody())
	require.NoError(t, err)

	summary, err = outcomes.Summary(userID, 14, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CheckinSubmittedDays)
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestDateKeyForBoundary(t *testing.T) {
	late := mustTime(t, "2026-08-31T01:30:00Z")
	assert.Equal(t, "2026-08-30", DateKeyFor(late, "UTC", 4))

	morning := mustTime(t, "2026-08-31T05:00:00Z")
	assert.Equal(t, "2026-08-31", DateKeyFor(morning, "UTC", 4))

	midnightBoundary := mustTime(t, "2026-08-31T01:30:00Z")
	assert.Equal(t, "2026-08-31", DateKeyFor(midnightBoundary, "UTC", 0))
}
