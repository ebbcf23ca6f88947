package services

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidCheckIn  = errors.New("check-in values out of range")
	ErrInvalidDateKey  = errors.New("dateKey must be YYYY-MM-DD")
	ErrInvalidQuick    = errors.New("unknown quick signal")
	ErrInvalidFeedback = errors.New("feedback reason not recognized")
)

var dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// feedbackReasons is the closed set accepted for helped:false feedback.
var feedbackReasons = map[string]bool{
	"too_long":     true,
	"too_intense":  true,
	"not_relevant": true,
	"already_calm": true,
	"could_not_do": true,
}

func ValidDateKey(dateKey string) bool {
	if !dateKeyPattern.MatchString(dateKey) {
		return false
	}
	_, err := time.Parse("2006-01-02", dateKey)
	return err == nil
}

type CheckInService struct {
	db       *gorm.DB
	outcomes *OutcomeService
}

func NewCheckInService(db *gorm.DB, outcomes *OutcomeService) *CheckInService {
	return &CheckInService{db: db, outcomes: outcomes}
}

// Submit validates and stores one check-in submission. Every submission is
// kept; the newest row per (user, date) supersedes older ones for planning.
func (s *CheckInService) Submit(userID uuid.UUID, dateKey string, body dto.CheckInBody) (*models.CheckIn, error) {
	if !ValidDateKey(dateKey) {
		return nil, ErrInvalidDateKey
	}
	if err := validateCheckInBody(body); err != nil {
		return nil, err
	}

	row := &models.CheckIn{
		UserID:           userID,
		DateKey:          dateKey,
		Stress:           body.Stress,
		SleepQuality:     body.SleepQuality,
		Energy:           body.Energy,
		TimeAvailableMin: body.TimeAvailableMin,
		Panic:            body.Panic,
		Illness:          body.Illness,
		Fever:            body.Fever,
		Injury:           body.Injury,
		Source:           "checkin",
	}
	if err := s.db.Create(row).Error; err != nil {
		return nil, err
	}
	if _, err := s.RecordDailyEvent(userID, dateKey, models.EventCheckinSubmitted, nil); err != nil {
		return nil, err
	}
	return row, nil
}

// QuickAdjust overlays a one-tap signal onto today's effective check-in and
// stores the result as a new superseding submission. The overlay is a fixed
// deterministic delta per signal.
func (s *CheckInService) QuickAdjust(userID uuid.UUID, dateKey, signal string) (*models.CheckIn, error) {
	if !ValidDateKey(dateKey) {
		return nil, ErrInvalidDateKey
	}

	base, err := s.Latest(userID, dateKey)
	if err != nil {
		return nil, err
	}
	adjusted := models.CheckIn{
		UserID:           userID,
		DateKey:          dateKey,
		Stress:           5,
		SleepQuality:     5,
		Energy:           5,
		TimeAvailableMin: 20,
		Source:           "quick",
	}
	if base != nil {
		adjusted.Stress = base.Stress
		adjusted.SleepQuality = base.SleepQuality
		adjusted.Energy = base.Energy
		adjusted.TimeAvailableMin = base.TimeAvailableMin
		adjusted.Panic = base.Panic
		adjusted.Illness = base.Illness
		adjusted.Fever = base.Fever
		adjusted.Injury = base.Injury
	}

	switch signal {
	case dto.QuickStressed:
		adjusted.Stress = clampTen(adjusted.Stress + 3)
	case dto.QuickExhausted:
		adjusted.Energy = clampTen(adjusted.Energy - 3)
	case dto.QuickTenMinutes:
		adjusted.TimeAvailableMin = 10
	case dto.QuickMoreEnergy:
		adjusted.Energy = clampTen(adjusted.Energy + 2)
	default:
		return nil, ErrInvalidQuick
	}

	if err := s.db.Create(&adjusted).Error; err != nil {
		return nil, err
	}
	payload, _ := json.Marshal(map[string]string{"signal": signal})
	if _, err := s.RecordDailyEvent(userID, dateKey, models.EventQuickAdjusted, payload); err != nil {
		return nil, err
	}
	return &adjusted, nil
}

// CompleteReset records the daily reset completion. The second and later
// completions for a date are accepted as no-op successes; the unique
// (user, date, type) index guarantees a single canonical row.
func (s *CheckInService) CompleteReset(userID uuid.UUID, dateKey, resetID string) (bool, error) {
	if !ValidDateKey(dateKey) {
		return false, ErrInvalidDateKey
	}
	payload, _ := json.Marshal(map[string]string{"resetId": resetID})
	return s.RecordDailyEvent(userID, dateKey, models.EventResetCompleted, payload)
}

// Feedback validates and records plan feedback. helped:false requires a
// reason from the whitelist; anything else is rejected, never stored.
func (s *CheckInService) Feedback(userID uuid.UUID, dateKey string, helped bool, reason string) error {
	if !ValidDateKey(dateKey) {
		return ErrInvalidDateKey
	}
	if !helped && !feedbackReasons[reason] {
		return ErrInvalidFeedback
	}
	if helped && reason != "" && !feedbackReasons[reason] {
		return ErrInvalidFeedback
	}
	payload, _ := json.Marshal(map[string]any{"helped": helped, "reason": reason})
	_, err := s.RecordDailyEvent(userID, dateKey, models.EventFeedbackGiven, payload)
	return err
}

// Latest returns the newest check-in for the date, or nil when none exists.
func (s *CheckInService) Latest(userID uuid.UUID, dateKey string) (*models.CheckIn, error) {
	var row models.CheckIn
	err := s.db.Where("user_id = ? AND date_key = ?", userID, dateKey).
		Order("created_at DESC").Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RecordDailyEvent appends the canonical daily event row. Returns true when
// this call created the row, false when it already existed.
func (s *CheckInService) RecordDailyEvent(userID uuid.UUID, dateKey, eventType string, payload []byte) (bool, error) {
	entry := models.EventLogEntry{
		UserID:  userID,
		DateKey: dateKey,
		Type:    eventType,
		Payload: datatypes.JSON(payload),
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}
	created := result.RowsAffected > 0
	if created && s.outcomes != nil {
		s.outcomes.Invalidate(userID)
	}
	return created, nil
}

func validateCheckInBody(body dto.CheckInBody) error {
	if body.Stress < 0 || body.Stress > 10 ||
		body.SleepQuality < 0 || body.SleepQuality > 10 ||
		body.Energy < 0 || body.Energy > 10 {
		return ErrInvalidCheckIn
	}
	if body.TimeAvailableMin < 0 || body.TimeAvailableMin > 24*60 {
		return ErrInvalidCheckIn
	}
	return nil
}

func clampTen(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}
