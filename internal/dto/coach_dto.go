package dto

// CheckInRequest is the body of POST /v1/checkin.
type CheckInRequest struct {
	DateKey string      `json:"dateKey"`
	CheckIn CheckInBody `json:"checkIn"`
}

type CheckInBody struct {
	Stress           int  `json:"stress"`
	SleepQuality     int  `json:"sleepQuality"`
	Energy           int  `json:"energy"`
	TimeAvailableMin int  `json:"timeAvailableMin"`
	Panic            bool `json:"panic"`
	Illness          bool `json:"illness"`
	Fever            bool `json:"fever"`
	Injury           bool `json:"injury"`
}

// Quick adjustment signals.
const (
	QuickStressed   = "stressed"
	QuickExhausted  = "exhausted"
	QuickTenMinutes = "ten_minutes"
	QuickMoreEnergy = "more_energy"
)

type QuickRequest struct {
	Signal  string `json:"signal"`
	DateKey string `json:"dateKey"`
}

type ResetCompleteRequest struct {
	ResetID string `json:"resetId"`
	DateKey string `json:"dateKey"`
}

type FeedbackRequest struct {
	DateKey string `json:"dateKey"`
	Helped  bool   `json:"helped"`
	Reason  string `json:"reason,omitempty"`
}

type ConsentAcceptRequest struct {
	Version int `json:"version"`
}

// OnboardRequest carries the baseline profile captured at onboarding.
type OnboardRequest struct {
	Timezone        string       `json:"timezone"`
	DayBoundaryHour int          `json:"dayBoundaryHour"`
	SleepHabit      string       `json:"sleepHabit"`
	CaffeineHabit   string       `json:"caffeineHabit"`
	ScreenHabit     string       `json:"screenHabit"`
	WorkoutWindows  []string     `json:"workoutWindows"`
	BusyDays        []string     `json:"busyDays"`
	Injuries        []string     `json:"injuries"`
	Equipment       []string     `json:"equipment"`
	FirstCheckIn    *CheckInBody `json:"firstCheckIn,omitempty"`
}

type BootstrapResponse struct {
	OK      bool             `json:"ok"`
	UIState string           `json:"uiState"`
	Auth    BootstrapAuth    `json:"auth"`
	Consent BootstrapConsent `json:"consent"`
	Profile BootstrapProfile `json:"profile"`
	Now     string           `json:"now"`
}

type BootstrapAuth struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}

type BootstrapConsent struct {
	Accepted        bool `json:"accepted"`
	AcceptedVersion int  `json:"acceptedVersion"`
	RequiredVersion int  `json:"requiredVersion"`
}

type BootstrapProfile struct {
	Exists     bool `json:"exists"`
	HasCheckIn bool `json:"hasCheckIn"`
}

type OutcomesResponse struct {
	OK                   bool `json:"ok"`
	Days                 int  `json:"days"`
	RailOpenedDays       int  `json:"railOpenedDays"`
	ResetCompletedDays   int  `json:"resetCompletedDays"`
	CheckinSubmittedDays int  `json:"checkinSubmittedDays"`
}
