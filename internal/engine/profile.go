package engine

// StressProfile is one of a fixed set of nervous-system states. The
// classifier always resolves ties in declaration order: wired beats
// depleted beats restless beats poor_sleep; balanced is the fallback.
type StressProfile string

const (
	ProfileWired     StressProfile = "wired"
	ProfileDepleted  StressProfile = "depleted"
	ProfileRestless  StressProfile = "restless"
	ProfilePoorSleep StressProfile = "poor_sleep"
	ProfileBalanced  StressProfile = "balanced"
)

func ValidProfile(p StressProfile) bool {
	switch p {
	case ProfileWired, ProfileDepleted, ProfileRestless, ProfilePoorSleep, ProfileBalanced:
		return true
	}
	return false
}

type SafetyLevel string

const (
	SafetyNone    SafetyLevel = "none"
	SafetyCaution SafetyLevel = "caution"
	SafetyBlock   SafetyLevel = "block"
)

// CheckInSignal is the per-day input the classifier works from. All scalar
// fields are 0..10 except TimeAvailableMin.
type CheckInSignal struct {
	Stress           int  `json:"stress"`
	SleepQuality     int  `json:"sleepQuality"`
	Energy           int  `json:"energy"`
	TimeAvailableMin int  `json:"timeAvailableMin"`
	Panic            bool `json:"panic,omitempty"`
	Illness          bool `json:"illness,omitempty"`
	Fever            bool `json:"fever,omitempty"`
	Injury           bool `json:"injury,omitempty"`
}

type Scores struct {
	Load     int `json:"load"`
	Capacity int `json:"capacity"`
}

type StressState struct {
	Profile StressProfile
	Scores  Scores
	Drivers []string
}

// Classify maps a check-in to a stress profile and load/capacity scores.
// Pure and total: identical inputs always produce identical output.
func Classify(sig CheckInSignal) StressState {
	sig = clampSignal(sig)

	profile := ProfileBalanced
	switch {
	case sig.Stress >= 7 && sig.Energy >= 5:
		profile = ProfileWired
	case sig.Energy <= 2 || (sig.Energy <= 3 && sig.Stress >= 5):
		profile = ProfileDepleted
	case sig.Stress >= 6 && sig.SleepQuality <= 4:
		profile = ProfileRestless
	case sig.SleepQuality <= 3:
		profile = ProfilePoorSleep
	}

	// Load rises with stress and with sleep/energy deficits; capacity rises
	// with sleep, energy and available time. Integer weights keep the result
	// bit-identical across runs.
	load := clampScore(sig.Stress*8 + (10-sig.SleepQuality)*2 + (10-sig.Energy))
	timeBudget := sig.TimeAvailableMin
	if timeBudget > 30 {
		timeBudget = 30
	}
	capacity := clampScore(sig.SleepQuality*5 + sig.Energy*4 + timeBudget)

	return StressState{
		Profile: profile,
		Scores:  Scores{Load: load, Capacity: capacity},
		Drivers: drivers(sig),
	}
}

// SafetyFor derives the safety gate level from check-in flags.
// Block always wins over caution.
func SafetyFor(sig CheckInSignal) SafetyLevel {
	if sig.Panic || sig.Fever || sig.Illness {
		return SafetyBlock
	}
	if sig.Injury || sig.SleepQuality <= 2 {
		return SafetyCaution
	}
	return SafetyNone
}

// drivers names the dominant inputs, at most two, in a fixed order.
func drivers(sig CheckInSignal) []string {
	var out []string
	if sig.Stress >= 7 {
		out = append(out, "high stress")
	}
	if sig.SleepQuality <= 4 {
		out = append(out, "poor sleep")
	}
	if len(out) < 2 && sig.Energy <= 3 {
		out = append(out, "low energy")
	}
	if len(out) < 2 && sig.TimeAvailableMin <= 15 {
		out = append(out, "tight schedule")
	}
	if len(out) > 2 {
		out = out[:2]
	}
	return out
}

func clampSignal(sig CheckInSignal) CheckInSignal {
	sig.Stress = clampRange(sig.Stress, 0, 10)
	sig.SleepQuality = clampRange(sig.SleepQuality, 0, 10)
	sig.Energy = clampRange(sig.Energy, 0, 10)
	if sig.TimeAvailableMin < 0 {
		sig.TimeAvailableMin = 0
	}
	return sig
}

func clampScore(n int) int {
	return clampRange(n, 0, 100)
}

func clampRange(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
