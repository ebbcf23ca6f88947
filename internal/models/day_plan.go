package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DayPlanRecord caches the generated plan for one user-day together with the
// input hash that produced it. When the hash of the current inputs differs the
// row is repaired in place; when it matches, the stored selection must match
// a fresh build byte for byte (anything else is counted as nondeterminism).
type DayPlanRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_day_plans_user_date" json:"user_id"`
	DateKey       string         `gorm:"size:10;not null;uniqueIndex:idx_day_plans_user_date" json:"date_key"`
	Profile       string         `gorm:"size:16;not null" json:"profile"`
	Focus         string         `gorm:"size:16;not null" json:"focus"`
	ResetSlug     string         `gorm:"size:64;not null" json:"reset_slug"`
	WorkoutSlug   *string        `gorm:"size:64" json:"workout_slug"`
	NutritionSlug string         `gorm:"size:64;not null" json:"nutrition_slug"`
	Rationale     datatypes.JSON `json:"rationale"`
	WorkoutWindow string         `gorm:"size:16" json:"workout_window"`
	NoveltyGroups datatypes.JSON `json:"novelty_groups"`
	Load          int            `gorm:"not null" json:"load"`
	Capacity      int            `gorm:"not null" json:"capacity"`
	InputHash     string         `gorm:"size:64;not null;index" json:"input_hash"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (p *DayPlanRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
