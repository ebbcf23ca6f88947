package engine

import (
	"errors"
	"sort"
)

type Focus string

const (
	FocusDownshift Focus = "downshift"
	FocusStabilize Focus = "stabilize"
	FocusRebuild   Focus = "rebuild"
)

func ValidFocus(f Focus) bool {
	return f == FocusDownshift || f == FocusStabilize || f == FocusRebuild
}

// Toggles are the business-rule flags consumed by the builder. They are part
// of the plan's input hash, so a flip forces a repair on the next read.
type Toggles struct {
	Constraints     bool `json:"constraints"`
	Novelty         bool `json:"novelty"`
	Feedback        bool `json:"feedback"`
	BadDay          bool `json:"badDay"`
	RecoveryDebt    bool `json:"recoveryDebt"`
	CircadianAnchor bool `json:"circadianAnchor"`
	Safety          bool `json:"safety"`
}

// DefaultToggles has every rule on.
func DefaultToggles() Toggles {
	return Toggles{
		Constraints:     true,
		Novelty:         true,
		Feedback:        true,
		BadDay:          true,
		RecoveryDebt:    true,
		CircadianAnchor: true,
		Safety:          true,
	}
}

// Constraints carries the profile's physical limitations.
type Constraints struct {
	Injuries  []string `json:"injuries"`
	Equipment []string `json:"equipment"`
}

// DaySignal is one prior day's scores, used for the 3-day focus window.
type DaySignal struct {
	Load     int
	Capacity int
}

type BuildInput struct {
	DateKey             string
	Signal              CheckInSignal
	State               StressState
	Safety              SafetyLevel
	Library             *Library
	Constraints         Constraints
	RecentNoveltyGroups []string
	History             []DaySignal
	Toggles             Toggles
	PreferredWindow     string
}

type DayPlan struct {
	DateKey       string
	Profile       StressProfile
	Focus         Focus
	Reset         *Item
	Workout       *Item
	Nutrition     *Item
	Rationale     []string
	WorkoutWindow string
	NoveltyGroups []string
	Scores        Scores
}

var ErrNoResetCandidate = errors.New("no reset candidate found")

// cautionIntensityCeiling is the highest workout intensity allowed when the
// safety level is caution.
const cautionIntensityCeiling = 2

// focusTags maps each profile to the content tags that fit it. Scoring
// rewards tag overlap with the current profile's row.
var focusTags = map[StressProfile][]string{
	ProfileWired:     {"downshift", "breath", "calming"},
	ProfileDepleted:  {"restore", "gentle", "low_effort"},
	ProfileRestless:  {"ground", "rhythmic", "steady"},
	ProfilePoorSleep: {"winddown", "low_light", "gentle"},
	ProfileBalanced:  {"maintain", "steady", "mobility"},
}

// Build selects the reset/workout/nutrition triple for one day. Pure: the
// same input always yields the same plan, with lexicographic id tie-breaks.
func Build(in BuildInput) (*DayPlan, error) {
	budget := in.Signal.TimeAvailableMin
	var reset *Item
	if budget > 0 {
		reset = pickBest(in, in.Library.ByKind(KindReset), budget, 0)
		if reset == nil {
			// Retry without the novelty cool-down before giving up;
			// repeating a reset beats having none.
			reset = pickBestIgnoringNovelty(in, in.Library.ByKind(KindReset), budget, 0)
		}
	}
	if reset == nil {
		// Budget below the shortest reset, or zero. The reset still
		// happens: take the shortest eligible one and let the workout slot
		// absorb the overrun by staying empty.
		reset = shortestReset(in)
	}
	if reset == nil {
		return nil, ErrNoResetCandidate
	}

	var workout *Item
	if !(in.Toggles.Safety && in.Safety == SafetyBlock) {
		ceiling := 0
		if in.Toggles.Safety && in.Safety == SafetyCaution {
			ceiling = cautionIntensityCeiling
		}
		// Total-time invariant: the workout only gets whatever the reset
		// leaves of the check-in's time budget.
		remaining := budget - reset.Minutes
		if remaining > 0 {
			workout = pickBest(in, in.Library.ByKind(KindWorkout), remaining, ceiling)
		}
	}

	nutrition := pickBest(in, in.Library.ByKind(KindNutrition), 0, 0)
	if nutrition == nil {
		nutrition = pickBestIgnoringNovelty(in, in.Library.ByKind(KindNutrition), 0, 0)
	}

	var groups []string
	groupSeen := make(map[string]bool)
	for _, item := range []*Item{reset, workout, nutrition} {
		if item != nil && item.NoveltyGroup != "" && !groupSeen[item.NoveltyGroup] {
			groupSeen[item.NoveltyGroup] = true
			groups = append(groups, item.NoveltyGroup)
		}
	}
	sort.Strings(groups)

	return &DayPlan{
		DateKey:       in.DateKey,
		Profile:       in.State.Profile,
		Focus:         focusFor(in.State.Scores, in.History),
		Reset:         reset,
		Workout:       workout,
		Nutrition:     nutrition,
		Rationale:     in.State.Drivers,
		WorkoutWindow: in.PreferredWindow,
		NoveltyGroups: groups,
		Scores:        in.State.Scores,
	}, nil
}

// focusFor derives the day focus from the rolling load/capacity window
// (today's scores plus up to the last three days).
func focusFor(today Scores, history []DaySignal) Focus {
	loadSum, capSum, n := today.Load, today.Capacity, 1
	for i, day := range history {
		if i >= 3 {
			break
		}
		loadSum += day.Load
		capSum += day.Capacity
		n++
	}
	avgLoad := loadSum / n
	avgCap := capSum / n
	switch {
	case avgLoad >= 65:
		return FocusDownshift
	case avgCap >= 60 && avgLoad < 50:
		return FocusRebuild
	default:
		return FocusStabilize
	}
}

func pickBest(in BuildInput, pool []Item, timeCeiling, intensityCeiling int) *Item {
	return pick(in, pool, timeCeiling, intensityCeiling, in.Toggles.Novelty)
}

func pickBestIgnoringNovelty(in BuildInput, pool []Item, timeCeiling, intensityCeiling int) *Item {
	return pick(in, pool, timeCeiling, intensityCeiling, false)
}

// shortestReset is the sub-budget fallback: the shortest reset the
// constraints allow, novelty and time ceiling ignored. The pool arrives
// sorted, so equal durations resolve to the lower id.
func shortestReset(in BuildInput) *Item {
	pool := in.Library.ByKind(KindReset)
	var best *Item
	for i := range pool {
		item := &pool[i]
		if !eligible(in, item, 0, 0, false) {
			continue
		}
		if best == nil || item.Minutes < best.Minutes {
			best = item
		}
	}
	return best
}

// pick scores the eligible candidates and returns the best, ties broken by
// lexicographic id (the pool arrives sorted, and only a strictly better
// score replaces the current best).
func pick(in BuildInput, pool []Item, timeCeiling, intensityCeiling int, novelty bool) *Item {
	var best *Item
	bestScore := 0
	for i := range pool {
		item := &pool[i]
		if !eligible(in, item, timeCeiling, intensityCeiling, novelty) {
			continue
		}
		s := score(in.State, item)
		if best == nil || s > bestScore {
			best = item
			bestScore = s
		}
	}
	return best
}

func eligible(in BuildInput, item *Item, timeCeiling, intensityCeiling int, novelty bool) bool {
	if timeCeiling > 0 && item.Minutes > timeCeiling {
		return false
	}
	if intensityCeiling > 0 && item.IntensityCost > intensityCeiling {
		return false
	}
	if in.Toggles.Constraints {
		for _, injury := range in.Constraints.Injuries {
			if containsString(item.Contraindications, injury) {
				return false
			}
		}
		for _, need := range item.Equipment {
			if !containsString(in.Constraints.Equipment, need) {
				return false
			}
		}
	}
	if novelty && item.NoveltyGroup != "" && containsString(in.RecentNoveltyGroups, item.NoveltyGroup) {
		return false
	}
	return true
}

// score is the deterministic candidate ranking: tag fit to the current
// profile, authored priority, and closeness of intensity to capacity.
func score(state StressState, item *Item) int {
	s := 0
	for _, tag := range focusTags[state.Profile] {
		if containsString(item.Tags, tag) {
			s += 10
		}
	}
	s += item.Priority * 2

	// Intensity-vs-capacity fit: each intensity step maps to 20 capacity
	// points; distance from the fit point costs score.
	fit := state.Scores.Capacity/20 + 1
	gap := item.IntensityCost - fit
	if gap < 0 {
		gap = -gap
	}
	s -= gap
	return s
}

func containsString(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
