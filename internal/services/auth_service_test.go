package services

import (
	"testing"

	"github.com/stillpoint-app/stillpoint-backend/internal/database"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *CheckInService) {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	return NewAuthService(db, testConfig()), NewCheckInService(db, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	_, err = svc.Register(&dto.RegisterRequest{Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(&dto.LoginRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(&dto.LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "r@example.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is revoked by the rotation.
	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "l@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(&dto.LogoutRequest{RefreshToken: resp.RefreshToken}))
	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDeleteAccountCascades(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	svc := NewAuthService(db, testConfig())
	checkins := NewCheckInService(db, nil)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "d@example.com", Password: "password123"})
	require.NoError(t, err)
	userID := resp.User.ID

	_, err = checkins.Submit(userID, "2026-08-31", dto.CheckInBody{Stress: 5, SleepQuality: 5, Energy: 5, TimeAvailableMin: 20})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(userID, "password123"))

	var users, rows, events int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).Count(&users).Error)
	require.NoError(t, db.Model(&models.CheckIn{}).Where("user_id = ?", userID).Count(&rows).Error)
	require.NoError(t, db.Model(&models.EventLogEntry{}).Where("user_id = ?", userID).Count(&events).Error)
	assert.Zero(t, users)
	assert.Zero(t, rows)
	assert.Zero(t, events)
}

func TestDeleteAccountWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "w@example.com", Password: "password123"})
	require.NoError(t, err)

	err = svc.DeleteAccount(resp.User.ID, "not-the-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
