package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrKeyConflict is returned when an idempotency key is reused with a
// different request body. Replaying a key must mean replaying the request;
// a different body under the same key is a client bug, not a retry.
var ErrKeyConflict = errors.New("idempotency key reused with a different request")

type IdempotencyService struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyService{db: db, ttl: ttl}
}

// RequestHash canonicalizes a request body for key-conflict detection.
func RequestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the stored record for (user, route, key), or nil when the
// key is unseen or the record has expired. An expired record is treated as
// unseen; the retention job deletes it later.
func (s *IdempotencyService) Lookup(userID uuid.UUID, route, key, requestHash string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := s.db.Where("user_id = ? AND route = ? AND key = ?", userID, route, key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, nil
	}
	if record.RequestHash != requestHash {
		return nil, ErrKeyConflict
	}
	return &record, nil
}

// Store persists the outcome of the first execution under a key. Concurrent
// racers hit the unique (user, route, key) index; the loser's insert is
// silently dropped, which is correct because both computed the same effect.
func (s *IdempotencyService) Store(userID uuid.UUID, route, key, requestHash string, statusCode int, response []byte) error {
	record := models.IdempotencyRecord{
		UserID:      userID,
		Route:       route,
		Key:         key,
		RequestHash: requestHash,
		Response:    datatypes.JSON(response),
		StatusCode:  statusCode,
		ExpiresAt:   time.Now().Add(s.ttl),
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}
