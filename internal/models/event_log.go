package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Daily event types. Each has at most one canonical row per (user, date_key),
// enforced by the composite unique index.
const (
	EventCheckinSubmitted = "checkin_submitted"
	EventResetCompleted   = "reset_completed"
	EventQuickAdjusted    = "quick_adjusted"
	EventRailOpened       = "rail_opened"
	EventFeedbackGiven    = "feedback_given"
)

type EventLogEntry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_events_user_date_type" json:"user_id"`
	DateKey   string         `gorm:"size:10;not null;uniqueIndex:idx_events_user_date_type" json:"date_key"`
	Type      string         `gorm:"size:32;not null;uniqueIndex:idx_events_user_date_type" json:"type"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (e *EventLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
