package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/database"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStoreAndReplay(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	svc := NewIdempotencyService(db, time.Hour)
	userID := uuid.New()

	body := []byte(`{"dateKey":"2026-08-31"}`)
	hash := RequestHash(body)

	record, err := svc.Lookup(userID, "/v1/checkin", "key-1", hash)
	require.NoError(t, err)
	assert.Nil(t, record)

	response := []byte(`{"ok":true}`)
	require.NoError(t, svc.Store(userID, "/v1/checkin", "key-1", hash, 201, response))

	record, err = svc.Lookup(userID, "/v1/checkin", "key-1", hash)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 201, record.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(record.Response))
}

func TestIdempotencyKeyReuseWithDifferentBody(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	svc := NewIdempotencyService(db, time.Hour)
	userID := uuid.New()

	hash := RequestHash([]byte(`{"stress":9}`))
	require.NoError(t, svc.Store(userID, "/v1/checkin", "key-1", hash, 201, []byte(`{}`)))

	otherHash := RequestHash([]byte(`{"stress":2}`))
	_, err = svc.Lookup(userID, "/v1/checkin", "key-1", otherHash)
	assert.ErrorIs(t, err, ErrKeyConflict)
}

func TestIdempotencyKeysAreScoped(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	svc := NewIdempotencyService(db, time.Hour)

	hash := RequestHash([]byte(`{}`))
	userA := uuid.New()
	require.NoError(t, svc.Store(userA, "/v1/checkin", "key-1", hash, 201, []byte(`{"who":"a"}`)))

	// Same key, different user: no replay, no conflict.
	record, err := svc.Lookup(uuid.New(), "/v1/checkin", "key-1", hash)
	require.NoError(t, err)
	assert.Nil(t, record)

	// Same key, same user, different route: also independent.
	record, err = svc.Lookup(userA, "/v1/quick", "key-1", hash)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestIdempotencyFirstWriterWins(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	svc := NewIdempotencyService(db, time.Hour)
	userID := uuid.New()
	hash := RequestHash([]byte(`{}`))

	require.NoError(t, svc.Store(userID, "/v1/checkin", "key-1", hash, 201, []byte(`{"n":1}`)))
	// A racing duplicate store is swallowed by the conditional insert.
	require.NoError(t, svc.Store(userID, "/v1/checkin", "key-1", hash, 201, []byte(`{"n":2}`)))

	record, err := svc.Lookup(userID, "/v1/checkin", "key-1", hash)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.JSONEq(t, `{"n":1}`, string(record.Response))

	var count int64
	require.NoError(t, db.Model(&models.IdempotencyRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIdempotencyExpiredRecordIgnored(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	svc := NewIdempotencyService(db, time.Hour)
	userID := uuid.New()
	hash := RequestHash([]byte(`{}`))

	require.NoError(t, svc.Store(userID, "/v1/checkin", "key-1", hash, 201, []byte(`{}`)))
	require.NoError(t, db.Model(&models.IdempotencyRecord{}).
		Where("user_id = ?", userID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	record, err := svc.Lookup(userID, "/v1/checkin", "key-1", hash)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRequestHashStable(t *testing.T) {
	body := []byte(`{"a":1}`)
	assert.Equal(t, RequestHash(body), RequestHash([]byte(`{"a":1}`)))
	assert.NotEqual(t, RequestHash(body), RequestHash([]byte(`{"a":2}`)))
}
