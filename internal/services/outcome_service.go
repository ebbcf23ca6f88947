package services

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"gorm.io/gorm"
)

// OutcomeSummary aggregates per-day event counts over a trailing window.
// Because each event type has at most one row per (user, date), a plain row
// count over the window is already a distinct-day count.
type OutcomeSummary struct {
	Days                 int
	RailOpenedDays       int
	ResetCompletedDays   int
	CheckinSubmittedDays int
}

type outcomeCacheEntry struct {
	summary  OutcomeSummary
	computed time.Time
}

type OutcomeService struct {
	db    *gorm.DB
	mu    sync.Mutex
	cache map[string]outcomeCacheEntry
}

func NewOutcomeService(db *gorm.DB) *OutcomeService {
	return &OutcomeService{db: db, cache: make(map[string]outcomeCacheEntry)}
}

const outcomeCacheTTL = 5 * time.Minute

// Summary returns the distinct-day counts for the last `days` days including
// today. Results are cached briefly and invalidated on every new event.
func (s *OutcomeService) Summary(userID uuid.UUID, days int, today string) (OutcomeSummary, error) {
	if days <= 0 {
		days = 14
	}
	if days > 90 {
		days = 90
	}
	key := cacheKey(userID, days, today)

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Since(entry.computed) < outcomeCacheTTL {
		s.mu.Unlock()
		return entry.summary, nil
	}
	s.mu.Unlock()

	start, err := windowStart(today, days)
	if err != nil {
		return OutcomeSummary{}, err
	}

	summary := OutcomeSummary{Days: days}
	counts := []struct {
		eventType string
		target    *int
	}{
		{models.EventRailOpened, &summary.RailOpenedDays},
		{models.EventResetCompleted, &summary.ResetCompletedDays},
		{models.EventCheckinSubmitted, &summary.CheckinSubmittedDays},
	}
	for _, c := range counts {
		var n int64
		err := s.db.Model(&models.EventLogEntry{}).
			Where("user_id = ? AND type = ? AND date_key >= ? AND date_key <= ?",
				userID, c.eventType, start, today).
			Count(&n).Error
		if err != nil {
			return OutcomeSummary{}, err
		}
		*c.target = int(n)
	}

	s.mu.Lock()
	s.cache[key] = outcomeCacheEntry{summary: summary, computed: time.Now()}
	s.mu.Unlock()
	return summary, nil
}

// Invalidate drops every cached summary for the user.
func (s *OutcomeService) Invalidate(userID uuid.UUID) {
	prefix := userID.String() + "|"
	s.mu.Lock()
	for key := range s.cache {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.cache, key)
		}
	}
	s.mu.Unlock()
}

func cacheKey(userID uuid.UUID, days int, today string) string {
	return userID.String() + "|" + today + "|" + strconv.Itoa(days)
}

func windowStart(today string, days int) (string, error) {
	t, err := time.Parse("2006-01-02", today)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -(days - 1)).Format("2006-01-02"), nil
}
