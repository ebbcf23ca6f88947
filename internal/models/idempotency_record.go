package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IdempotencyRecord stores the outcome of the first mutating request seen for
// a (user, route, key) triple. Later requests with the same triple replay the
// stored response without re-executing the handler. Rows are immutable after
// creation and expire per retention policy.
type IdempotencyRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_idem_user_route_key" json:"user_id"`
	Route       string         `gorm:"size:64;not null;uniqueIndex:idx_idem_user_route_key" json:"route"`
	Key         string         `gorm:"size:128;not null;uniqueIndex:idx_idem_user_route_key" json:"key"`
	RequestHash string         `gorm:"size:64;not null" json:"request_hash"`
	Response    datatypes.JSON `json:"response"`
	StatusCode  int            `gorm:"not null" json:"status_code"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `gorm:"not null;index" json:"expires_at"`
}

func (r *IdempotencyRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
