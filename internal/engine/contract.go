package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Contract is the externally exposed, validated projection of a DayPlan.
type Contract struct {
	OK        bool              `json:"ok"`
	DateKey   string            `json:"dateKey"`
	Profile   StressProfile     `json:"profile"`
	Focus     Focus             `json:"focus"`
	Reset     ContractReset     `json:"reset"`
	Movement  *ContractMovement `json:"movement"`
	Nutrition ContractNutrition `json:"nutrition"`
	Rationale []string          `json:"rationale"`
	Scores    Scores            `json:"scores"`
	HowLong   ContractHowLong   `json:"howLong"`
	Meta      ContractMeta      `json:"meta"`
}

type ContractReset struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	DurationSec int      `json:"durationSec"`
	Steps       []string `json:"steps"`
}

type ContractMovement struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Minutes int    `json:"minutes"`
	Window  string `json:"window,omitempty"`
}

type ContractNutrition struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

type ContractHowLong struct {
	ResetMinutes    int `json:"resetMinutes"`
	MovementMinutes int `json:"movementMinutes"`
	TotalMinutes    int `json:"totalMinutes"`
}

type ContractMeta struct {
	Completed ContractCompleted `json:"completed"`
	InputHash string            `json:"inputHash"`
}

type ContractCompleted struct {
	Reset bool `json:"reset"`
}

// ContractError reports a structural violation found while normalizing a
// plan. It indicates an engine or data bug, never user error.
type ContractError struct {
	Field  string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract invalid: %s: %s", e.Field, e.Reason)
}

const (
	minResetDurationSec = 120
	maxResetDurationSec = 300
)

// Normalize converts a DayPlan into the wire contract, enforcing every
// structural invariant. It runs on every response path, including cache
// repair, so a malformed plan can never leave the engine.
func Normalize(plan *DayPlan, completedReset bool, inputHash string) (*Contract, error) {
	if plan == nil {
		return nil, &ContractError{Field: "plan", Reason: "missing"}
	}
	if plan.DateKey == "" {
		return nil, &ContractError{Field: "dateKey", Reason: "missing"}
	}
	if !ValidProfile(plan.Profile) {
		return nil, &ContractError{Field: "profile", Reason: fmt.Sprintf("unknown value %q", plan.Profile)}
	}
	if !ValidFocus(plan.Focus) {
		return nil, &ContractError{Field: "focus", Reason: fmt.Sprintf("unknown value %q", plan.Focus)}
	}
	if plan.Reset == nil {
		return nil, &ContractError{Field: "reset", Reason: "missing"}
	}
	if plan.Nutrition == nil {
		return nil, &ContractError{Field: "nutrition", Reason: "missing"}
	}
	if inputHash == "" {
		return nil, &ContractError{Field: "meta.inputHash", Reason: "missing"}
	}
	if plan.Scores.Load < 0 || plan.Scores.Load > 100 {
		return nil, &ContractError{Field: "scores.load", Reason: "outside [0,100]"}
	}
	if plan.Scores.Capacity < 0 || plan.Scores.Capacity > 100 {
		return nil, &ContractError{Field: "scores.capacity", Reason: "outside [0,100]"}
	}

	durationSec := plan.Reset.Minutes * 60
	if durationSec < minResetDurationSec || durationSec > maxResetDurationSec {
		return nil, &ContractError{Field: "reset.durationSec", Reason: fmt.Sprintf("%d outside [%d,%d]", durationSec, minResetDurationSec, maxResetDurationSec)}
	}
	if len(plan.Reset.Steps) == 0 {
		return nil, &ContractError{Field: "reset.steps", Reason: "empty"}
	}
	if len(plan.Nutrition.Bullets) == 0 {
		return nil, &ContractError{Field: "nutrition.bullets", Reason: "empty"}
	}

	rationale := plan.Rationale
	if rationale == nil {
		rationale = []string{}
	}
	if len(rationale) > 2 {
		rationale = rationale[:2]
	}

	contract := &Contract{
		OK:      true,
		DateKey: plan.DateKey,
		Profile: plan.Profile,
		Focus:   plan.Focus,
		Reset: ContractReset{
			ID:          plan.Reset.ID,
			Title:       plan.Reset.Title,
			DurationSec: durationSec,
			Steps:       plan.Reset.Steps,
		},
		Nutrition: ContractNutrition{
			ID:      plan.Nutrition.ID,
			Title:   plan.Nutrition.Title,
			Bullets: plan.Nutrition.Bullets,
		},
		Rationale: rationale,
		Scores:    plan.Scores,
		HowLong: ContractHowLong{
			ResetMinutes: plan.Reset.Minutes,
			TotalMinutes: plan.Reset.Minutes,
		},
		Meta: ContractMeta{
			Completed: ContractCompleted{Reset: completedReset},
			InputHash: inputHash,
		},
	}

	if plan.Workout != nil {
		if plan.Workout.Minutes <= 0 {
			return nil, &ContractError{Field: "movement.minutes", Reason: "not positive"}
		}
		contract.Movement = &ContractMovement{
			ID:      plan.Workout.ID,
			Title:   plan.Workout.Title,
			Minutes: plan.Workout.Minutes,
			Window:  plan.WorkoutWindow,
		}
		contract.HowLong.MovementMinutes = plan.Workout.Minutes
		contract.HowLong.TotalMinutes += plan.Workout.Minutes
	}

	return contract, nil
}

// HashInput is the canonical set of inputs that determine a contract.
// Identical HashInput values must yield byte-identical contracts.
type HashInput struct {
	DateKey         string        `json:"dateKey"`
	Timezone        string        `json:"timezone"`
	DayBoundaryHour int           `json:"dayBoundaryHour"`
	CheckIn         CheckInSignal `json:"checkIn"`
	Constraints     Constraints   `json:"constraints"`
	LibraryVersion  string        `json:"libraryVersion"`
	Toggles         Toggles       `json:"toggles"`
	PreferredWindow string        `json:"preferredWindow"`
}

// ComputeInputHash hashes the canonical JSON encoding of the inputs. Struct
// fields marshal in declaration order, which makes the encoding stable.
func ComputeInputHash(in HashInput) string {
	if in.Constraints.Injuries == nil {
		in.Constraints.Injuries = []string{}
	}
	if in.Constraints.Equipment == nil {
		in.Constraints.Equipment = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		// Only unmarshalable types reach this; HashInput has none.
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
