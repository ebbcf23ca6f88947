package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleToggle stores one business-rule flag consumed by the plan builder.
// The full toggle snapshot is part of the plan's input hash, so flipping a
// toggle changes the hash and forces a plan repair on the next read.
type RuleToggle struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key       string    `gorm:"size:64;not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Type      string    `gorm:"size:20;default:'bool'" json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *RuleToggle) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (RuleToggle) TableName() string {
	return "rule_toggles"
}
