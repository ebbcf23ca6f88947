package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckIn is one submitted signal report. Every submission is kept; the most
// recent row per (user, date_key) is the effective one for planning.
type CheckIn struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index:idx_checkins_user_date" json:"user_id"`
	DateKey          string    `gorm:"size:10;not null;index:idx_checkins_user_date" json:"date_key"`
	Stress           int       `gorm:"not null" json:"stress"`
	SleepQuality     int       `gorm:"not null" json:"sleep_quality"`
	Energy           int       `gorm:"not null" json:"energy"`
	TimeAvailableMin int       `gorm:"not null" json:"time_available_min"`
	Panic            bool      `gorm:"default:false" json:"panic"`
	Illness          bool      `gorm:"default:false" json:"illness"`
	Fever            bool      `gorm:"default:false" json:"fever"`
	Injury           bool      `gorm:"default:false" json:"injury"`
	Source           string    `gorm:"size:16;default:'checkin'" json:"source"`
	CreatedAt        time.Time `json:"created_at"`
}

func (c *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
