package services

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/engine"
	"github.com/stillpoint-app/stillpoint-backend/internal/metrics"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	noveltyWindowDays = 7
	historyDays       = 3
)

// baselineSignal is used when a day has no check-in yet. The rail must still
// render something sensible before the first submission.
var baselineSignal = engine.CheckInSignal{
	Stress:           5,
	SleepQuality:     5,
	Energy:           5,
	TimeAvailableMin: 20,
}

type PlanService struct {
	db       *gorm.DB
	content  *ContentService
	checkins *CheckInService
	counters *metrics.Counters
}

func NewPlanService(db *gorm.DB, content *ContentService, checkins *CheckInService, counters *metrics.Counters) *PlanService {
	return &PlanService{db: db, content: content, checkins: checkins, counters: counters}
}

// ContractFor returns the normalized day contract, generating and caching the
// plan on first read. Repeated reads with unchanged inputs serve the cached
// selection; changed inputs repair the cached row in place.
func (s *PlanService) ContractFor(userID uuid.UUID, dateKey string) (*engine.Contract, error) {
	if !ValidDateKey(dateKey) {
		return nil, ErrInvalidDateKey
	}

	input, lib, err := s.buildInput(userID, dateKey)
	if err != nil {
		return nil, err
	}
	hash := engine.ComputeInputHash(engine.HashInput{
		DateKey:         dateKey,
		Timezone:        input.timezone,
		DayBoundaryHour: input.dayBoundaryHour,
		CheckIn:         input.build.Signal,
		Constraints:     input.build.Constraints,
		LibraryVersion:  lib.Version,
		Toggles:         input.build.Toggles,
		PreferredWindow: input.build.PreferredWindow,
	})

	plan, err := s.resolvePlan(userID, dateKey, input.build, lib, hash)
	if err != nil {
		return nil, err
	}

	completed, err := s.hasDailyEvent(userID, dateKey, models.EventResetCompleted)
	if err != nil {
		return nil, err
	}

	contract, err := engine.Normalize(plan, completed, hash)
	if err != nil {
		var cerr *engine.ContractError
		if errors.As(err, &cerr) {
			s.counters.Increment("today_contract_invalid", map[string]string{"date_key": dateKey}, 1)
		}
		return nil, err
	}
	return contract, nil
}

// WeekDay is one row of the week view. Days without a cached plan and future
// days carry only the date.
type WeekDay struct {
	DateKey   string  `json:"dateKey"`
	Planned   bool    `json:"planned"`
	Profile   string  `json:"profile,omitempty"`
	Focus     string  `json:"focus,omitempty"`
	Reset     string  `json:"reset,omitempty"`
	Workout   *string `json:"workout,omitempty"`
	Nutrition string  `json:"nutrition,omitempty"`
	Completed bool    `json:"completed"`
}

// WeekFor returns the Monday-aligned week containing today. Today's plan is
// generated on the way through so the week view never lags the rail.
func (s *PlanService) WeekFor(userID uuid.UUID, today string) ([]WeekDay, error) {
	if !ValidDateKey(today) {
		return nil, ErrInvalidDateKey
	}
	if _, err := s.ContractFor(userID, today); err != nil {
		return nil, err
	}

	t, _ := time.Parse("2006-01-02", today)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := t.AddDate(0, 0, -(weekday - 1))

	start := monday.Format("2006-01-02")
	end := monday.AddDate(0, 0, 6).Format("2006-01-02")

	var records []models.DayPlanRecord
	err := s.db.Where("user_id = ? AND date_key >= ? AND date_key <= ?", userID, start, end).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]*models.DayPlanRecord, len(records))
	for i := range records {
		byDate[records[i].DateKey] = &records[i]
	}

	var completions []models.EventLogEntry
	err = s.db.Where("user_id = ? AND type = ? AND date_key >= ? AND date_key <= ?",
		userID, models.EventResetCompleted, start, end).
		Find(&completions).Error
	if err != nil {
		return nil, err
	}
	completedDates := make(map[string]bool, len(completions))
	for _, c := range completions {
		completedDates[c.DateKey] = true
	}

	week := make([]WeekDay, 0, 7)
	for i := 0; i < 7; i++ {
		dateKey := monday.AddDate(0, 0, i).Format("2006-01-02")
		day := WeekDay{DateKey: dateKey, Completed: completedDates[dateKey]}
		if rec, ok := byDate[dateKey]; ok && dateKey <= today {
			day.Planned = true
			day.Profile = rec.Profile
			day.Focus = rec.Focus
			day.Reset = rec.ResetSlug
			day.Workout = rec.WorkoutSlug
			day.Nutrition = rec.NutritionSlug
		}
		week = append(week, day)
	}
	return week, nil
}

// TodayKey resolves the user's current logical day from their profile
// timezone and day boundary. Users without a profile fall back to UTC.
func (s *PlanService) TodayKey(userID uuid.UUID, now time.Time) string {
	timezone := "UTC"
	boundary := 4
	var profile models.UserProfile
	if err := s.db.Where("user_id = ?", userID).First(&profile).Error; err == nil {
		timezone = profile.Timezone
		boundary = profile.DayBoundaryHour
	}
	return DateKeyFor(now, timezone, boundary)
}

type planInput struct {
	build           engine.BuildInput
	timezone        string
	dayBoundaryHour int
}

func (s *PlanService) buildInput(userID uuid.UUID, dateKey string) (*planInput, *engine.Library, error) {
	lib, err := s.content.Library()
	if err != nil {
		return nil, nil, err
	}
	toggles, err := s.content.Toggles()
	if err != nil {
		return nil, nil, err
	}

	signal := baselineSignal
	latest, err := s.checkins.Latest(userID, dateKey)
	if err != nil {
		return nil, nil, err
	}
	if latest != nil {
		signal = engine.CheckInSignal{
			Stress:           latest.Stress,
			SleepQuality:     latest.SleepQuality,
			Energy:           latest.Energy,
			TimeAvailableMin: latest.TimeAvailableMin,
			Panic:            latest.Panic,
			Illness:          latest.Illness,
			Fever:            latest.Fever,
			Injury:           latest.Injury,
		}
	}

	timezone := "UTC"
	boundary := 4
	constraints := engine.Constraints{}
	preferredWindow := ""
	var profile models.UserProfile
	err = s.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}
	if err == nil {
		timezone = profile.Timezone
		boundary = profile.DayBoundaryHour
		constraints.Injuries = decodeStrings(profile.Injuries)
		constraints.Equipment = decodeStrings(profile.Equipment)
		if windows := decodeStrings(profile.WorkoutWindows); len(windows) > 0 {
			preferredWindow = windows[0]
		}
	}

	novelty, err := s.recentNoveltyGroups(userID, dateKey)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.recentHistory(userID, dateKey)
	if err != nil {
		return nil, nil, err
	}

	state := engine.Classify(signal)
	return &planInput{
		build: engine.BuildInput{
			DateKey:             dateKey,
			Signal:              signal,
			State:               state,
			Safety:              engine.SafetyFor(signal),
			Library:             lib,
			Constraints:         constraints,
			RecentNoveltyGroups: novelty,
			History:             history,
			Toggles:             toggles,
			PreferredWindow:     preferredWindow,
		},
		timezone:        timezone,
		dayBoundaryHour: boundary,
	}, lib, nil
}

// resolvePlan reconciles the fresh build against the cached row. A matching
// hash must reproduce the stored selection exactly; a mismatch there is
// counted as nondeterminism and the stored selection wins, so the user never
// sees the plan flap within a day.
func (s *PlanService) resolvePlan(userID uuid.UUID, dateKey string, in engine.BuildInput, lib *engine.Library, hash string) (*engine.DayPlan, error) {
	fresh, err := engine.Build(in)
	if err != nil {
		return nil, err
	}

	var cached models.DayPlanRecord
	err = s.db.Where("user_id = ? AND date_key = ?", userID, dateKey).First(&cached).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.storePlan(userID, dateKey, fresh, hash); err != nil {
			return nil, err
		}
		return fresh, nil
	case err != nil:
		return nil, err
	}

	if cached.InputHash != hash {
		cached.Profile = string(fresh.Profile)
		cached.Focus = string(fresh.Focus)
		cached.ResetSlug = fresh.Reset.ID
		cached.WorkoutSlug = workoutSlug(fresh)
		cached.NutritionSlug = fresh.Nutrition.ID
		cached.Rationale = encodeStrings(fresh.Rationale)
		cached.NoveltyGroups = encodeStrings(fresh.NoveltyGroups)
		cached.WorkoutWindow = fresh.WorkoutWindow
		cached.Load = fresh.Scores.Load
		cached.Capacity = fresh.Scores.Capacity
		cached.InputHash = hash
		if err := s.db.Save(&cached).Error; err != nil {
			return nil, err
		}
		return fresh, nil
	}

	if !selectionMatches(&cached, fresh) {
		s.counters.Increment("nondeterminism_detected", map[string]string{"date_key": dateKey}, 1)
		return s.planFromRecord(&cached, lib)
	}
	return fresh, nil
}

func (s *PlanService) storePlan(userID uuid.UUID, dateKey string, plan *engine.DayPlan, hash string) error {
	record := models.DayPlanRecord{
		UserID:        userID,
		DateKey:       dateKey,
		Profile:       string(plan.Profile),
		Focus:         string(plan.Focus),
		ResetSlug:     plan.Reset.ID,
		WorkoutSlug:   workoutSlug(plan),
		NutritionSlug: plan.Nutrition.ID,
		Rationale:     encodeStrings(plan.Rationale),
		NoveltyGroups: encodeStrings(plan.NoveltyGroups),
		WorkoutWindow: plan.WorkoutWindow,
		Load:          plan.Scores.Load,
		Capacity:      plan.Scores.Capacity,
		InputHash:     hash,
	}
	// Concurrent first reads race here; the unique index makes the first
	// writer canonical and everyone re-reads the same row next time.
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

// planFromRecord rebuilds a DayPlan from the stored selection.
func (s *PlanService) planFromRecord(rec *models.DayPlanRecord, lib *engine.Library) (*engine.DayPlan, error) {
	reset := lib.Find(rec.ResetSlug)
	nutrition := lib.Find(rec.NutritionSlug)
	if reset == nil || nutrition == nil {
		return nil, &engine.ContractError{Field: "reset.id", Reason: "stored slug missing from catalog"}
	}
	plan := &engine.DayPlan{
		DateKey:       rec.DateKey,
		Profile:       engine.StressProfile(rec.Profile),
		Focus:         engine.Focus(rec.Focus),
		Reset:         reset,
		Nutrition:     nutrition,
		Rationale:     decodeStrings(rec.Rationale),
		WorkoutWindow: rec.WorkoutWindow,
		NoveltyGroups: decodeStrings(rec.NoveltyGroups),
		Scores:        engine.Scores{Load: rec.Load, Capacity: rec.Capacity},
	}
	if rec.WorkoutSlug != nil {
		plan.Workout = lib.Find(*rec.WorkoutSlug)
		if plan.Workout == nil {
			return nil, &engine.ContractError{Field: "movement.id", Reason: "stored slug missing from catalog"}
		}
	}
	return plan, nil
}

func (s *PlanService) recentNoveltyGroups(userID uuid.UUID, dateKey string) ([]string, error) {
	t, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return nil, ErrInvalidDateKey
	}
	start := t.AddDate(0, 0, -noveltyWindowDays).Format("2006-01-02")

	var records []models.DayPlanRecord
	err = s.db.Where("user_id = ? AND date_key >= ? AND date_key < ?", userID, start, dateKey).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for i := range records {
		for _, g := range decodeStrings(records[i].NoveltyGroups) {
			set[g] = true
		}
	}
	groups := make([]string, 0, len(set))
	for g := range set {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

func (s *PlanService) recentHistory(userID uuid.UUID, dateKey string) ([]engine.DaySignal, error) {
	t, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return nil, ErrInvalidDateKey
	}
	start := t.AddDate(0, 0, -historyDays).Format("2006-01-02")

	var records []models.DayPlanRecord
	err = s.db.Where("user_id = ? AND date_key >= ? AND date_key < ?", userID, start, dateKey).
		Order("date_key ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	history := make([]engine.DaySignal, 0, len(records))
	for _, rec := range records {
		history = append(history, engine.DaySignal{Load: rec.Load, Capacity: rec.Capacity})
	}
	return history, nil
}

func (s *PlanService) hasDailyEvent(userID uuid.UUID, dateKey, eventType string) (bool, error) {
	var n int64
	err := s.db.Model(&models.EventLogEntry{}).
		Where("user_id = ? AND date_key = ? AND type = ?", userID, dateKey, eventType).
		Count(&n).Error
	return n > 0, err
}

func workoutSlug(plan *engine.DayPlan) *string {
	if plan.Workout == nil {
		return nil
	}
	slug := plan.Workout.ID
	return &slug
}

func selectionMatches(rec *models.DayPlanRecord, plan *engine.DayPlan) bool {
	if rec.Profile != string(plan.Profile) || rec.Focus != string(plan.Focus) {
		return false
	}
	if rec.ResetSlug != plan.Reset.ID || rec.NutritionSlug != plan.Nutrition.ID {
		return false
	}
	switch {
	case rec.WorkoutSlug == nil && plan.Workout == nil:
		return true
	case rec.WorkoutSlug != nil && plan.Workout != nil:
		return *rec.WorkoutSlug == plan.Workout.ID
	default:
		return false
	}
}
