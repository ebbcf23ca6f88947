package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsentRecord stores one row per accepted consent document version.
// The gate checks the highest accepted version against the required one,
// so raising CONSENT_VERSION drops users back to the consent screen.
type ConsentRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_consent_user_version" json:"user_id"`
	Version    int       `gorm:"not null;uniqueIndex:idx_consent_user_version" json:"version"`
	AcceptedAt time.Time `gorm:"not null" json:"accepted_at"`
}

func (r *ConsentRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
