package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UIState is the caller's position in the bootstrap state machine.
type UIState string

const (
	StateLogin   UIState = "login"
	StateConsent UIState = "consent"
	StateOnboard UIState = "onboard"
	StateHome    UIState = "home"
)

var (
	ErrConsentVersionStale = errors.New("accepted consent version is below the required one")
	ErrProfileExists       = errors.New("profile already exists")
)

// BootstrapView is the derived gate state for one request. It is computed
// fresh from auth/consent/profile records every time, never stored.
type BootstrapView struct {
	UIState         UIState
	Authenticated   bool
	UserID          uuid.UUID
	ConsentVersion  int
	RequiredVersion int
	ProfileExists   bool
	HasCheckIn      bool
}

// ResolveState is the pure core of the gate. Precedence is strict:
// login before consent before onboard before home.
func ResolveState(authenticated bool, acceptedVersion, requiredVersion int, profileExists bool) UIState {
	switch {
	case !authenticated:
		return StateLogin
	case acceptedVersion < requiredVersion:
		return StateConsent
	case !profileExists:
		return StateOnboard
	default:
		return StateHome
	}
}

type BootstrapService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewBootstrapService(db *gorm.DB, cfg *config.Config) *BootstrapService {
	return &BootstrapService{db: db, cfg: cfg}
}

// Resolve computes the gate state for an authenticated user. Any lookup
// error fails closed: the caller is treated as unauthenticated rather than
// allowed past a gate whose inputs could not be read.
func (s *BootstrapService) Resolve(userID uuid.UUID) (BootstrapView, error) {
	view := BootstrapView{
		UIState:         StateLogin,
		RequiredVersion: s.cfg.ConsentVersion,
	}
	if userID == uuid.Nil {
		return view, nil
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, nil
		}
		return view, err
	}
	view.Authenticated = true
	view.UserID = userID

	var consent models.ConsentRecord
	err := s.db.Where("user_id = ?", userID).Order("version DESC").First(&consent).Error
	switch {
	case err == nil:
		view.ConsentVersion = consent.Version
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No consent yet.
	default:
		return BootstrapView{UIState: StateLogin, RequiredVersion: s.cfg.ConsentVersion}, err
	}

	var profileCount int64
	if err := s.db.Model(&models.UserProfile{}).Where("user_id = ?", userID).Count(&profileCount).Error; err != nil {
		return BootstrapView{UIState: StateLogin, RequiredVersion: s.cfg.ConsentVersion}, err
	}
	view.ProfileExists = profileCount > 0

	var checkinCount int64
	if err := s.db.Model(&models.CheckIn{}).Where("user_id = ?", userID).Count(&checkinCount).Error; err != nil {
		return BootstrapView{UIState: StateLogin, RequiredVersion: s.cfg.ConsentVersion}, err
	}
	view.HasCheckIn = checkinCount > 0

	view.UIState = ResolveState(view.Authenticated, view.ConsentVersion, view.RequiredVersion, view.ProfileExists)
	return view, nil
}

// AcceptConsent records acceptance of the given document version. Accepting
// a version below the required one leaves the user at the consent gate.
func (s *BootstrapService) AcceptConsent(userID uuid.UUID, version int) error {
	if version < s.cfg.ConsentVersion {
		return ErrConsentVersionStale
	}
	record := models.ConsentRecord{
		UserID:     userID,
		Version:    version,
		AcceptedAt: time.Now().UTC(),
	}
	// Re-accepting the same version is a no-op.
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

// CompleteOnboarding stores the baseline profile. A second attempt is
// rejected; profile edits go through a separate update path.
func (s *BootstrapService) CompleteOnboarding(userID uuid.UUID, req *dto.OnboardRequest) (*models.UserProfile, error) {
	var count int64
	if err := s.db.Model(&models.UserProfile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProfileExists
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, errors.New("unknown timezone")
	}
	boundary := req.DayBoundaryHour
	if boundary < 0 || boundary > 12 {
		boundary = 4
	}

	profile := models.UserProfile{
		UserID:          userID,
		Timezone:        timezone,
		DayBoundaryHour: boundary,
		SleepHabit:      req.SleepHabit,
		CaffeineHabit:   req.CaffeineHabit,
		ScreenHabit:     req.ScreenHabit,
		WorkoutWindows:  encodeStrings(req.WorkoutWindows),
		BusyDays:        encodeStrings(req.BusyDays),
		Injuries:        encodeStrings(req.Injuries),
		Equipment:       encodeStrings(req.Equipment),
	}
	if err := s.db.Create(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
