package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserProfile is the stable baseline captured at onboarding. It changes only
// through explicit profile updates and is deleted with the account.
type UserProfile struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Timezone        string         `gorm:"size:64;not null;default:'UTC'" json:"timezone"`
	DayBoundaryHour int            `gorm:"not null;default:4" json:"day_boundary_hour"`
	SleepHabit      string         `gorm:"size:32" json:"sleep_habit"`
	CaffeineHabit   string         `gorm:"size:32" json:"caffeine_habit"`
	ScreenHabit     string         `gorm:"size:32" json:"screen_habit"`
	WorkoutWindows  datatypes.JSON `json:"workout_windows"`
	BusyDays        datatypes.JSON `json:"busy_days"`
	Injuries        datatypes.JSON `json:"injuries"`
	Equipment       datatypes.JSON `json:"equipment"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
