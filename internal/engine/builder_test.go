package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLibrary() *Library {
	return &Library{
		Version: "test-v1",
		Items: []Item{
			{ID: "reset-box-breath", Kind: KindReset, Title: "Box Breathing", Tags: []string{"downshift", "breath"}, Minutes: 3, NoveltyGroup: "breath", Steps: []string{"Inhale 4", "Hold 4", "Exhale 4", "Hold 4"}, Priority: 2, Enabled: true},
			{ID: "reset-body-scan", Kind: KindReset, Title: "Body Scan", Tags: []string{"ground", "gentle"}, Minutes: 5, NoveltyGroup: "scan", Steps: []string{"Lie down", "Scan from toes to head"}, Priority: 1, Enabled: true},
			{ID: "workout-walk", Kind: KindWorkout, Title: "Brisk Walk", Tags: []string{"steady", "gentle"}, Minutes: 15, IntensityCost: 2, NoveltyGroup: "cardio", Priority: 1, Enabled: true},
			{ID: "workout-strength", Kind: KindWorkout, Title: "Strength Circuit", Tags: []string{"rebuild"}, Minutes: 25, IntensityCost: 4, NoveltyGroup: "strength", Equipment: []string{"dumbbells"}, Priority: 2, Enabled: true},
			{ID: "workout-stretch", Kind: KindWorkout, Title: "Floor Stretch", Tags: []string{"gentle", "mobility"}, Minutes: 8, IntensityCost: 1, NoveltyGroup: "mobility", Contraindications: []string{"back"}, Priority: 1, Enabled: true},
			{ID: "nutrition-hydrate", Kind: KindNutrition, Title: "Front-load Water", Tags: []string{"maintain"}, Bullets: []string{"500ml before noon"}, NoveltyGroup: "hydration", Priority: 1, Enabled: true},
			{ID: "nutrition-protein", Kind: KindNutrition, Title: "Protein First", Tags: []string{"restore"}, Bullets: []string{"Protein within an hour of waking"}, NoveltyGroup: "macros", Priority: 1, Enabled: true},
		},
	}
}

func baseInput(sig CheckInSignal) BuildInput {
	state := Classify(sig)
	return BuildInput{
		DateKey: "2026-08-31",
		Signal:  sig,
		State:   state,
		Safety:  SafetyFor(sig),
		Library: testLibrary(),
		Toggles: DefaultToggles(),
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 5, SleepQuality: 6, Energy: 6, TimeAvailableMin: 40})

	first, err := Build(in)
	require.NoError(t, err)
	second, err := Build(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildBlocksWorkoutOnPanic(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 4, SleepQuality: 7, Energy: 7, TimeAvailableMin: 60, Panic: true})

	plan, err := Build(in)
	require.NoError(t, err)

	assert.Nil(t, plan.Workout)
	assert.NotNil(t, plan.Reset)
	assert.NotNil(t, plan.Nutrition)
}

func TestBuildCautionLowersIntensityCeiling(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 3, SleepQuality: 8, Energy: 9, TimeAvailableMin: 60, Injury: true})
	in.Constraints.Equipment = []string{"dumbbells"}

	plan, err := Build(in)
	require.NoError(t, err)

	require.NotNil(t, plan.Workout)
	assert.LessOrEqual(t, plan.Workout.IntensityCost, cautionIntensityCeiling)
}

func TestBuildRespectsTimeBudget(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 9, SleepQuality: 3, Energy: 3, TimeAvailableMin: 10})

	plan, err := Build(in)
	require.NoError(t, err)

	total := plan.Reset.Minutes
	if plan.Workout != nil {
		total += plan.Workout.Minutes
	}
	assert.LessOrEqual(t, total, 10)
}

func TestBuildDropsWorkoutBeforeReset(t *testing.T) {
	// 4 minutes: every workout is too long once the reset is placed.
	in := baseInput(CheckInSignal{Stress: 5, SleepQuality: 6, Energy: 6, TimeAvailableMin: 4})

	plan, err := Build(in)
	require.NoError(t, err)

	assert.NotNil(t, plan.Reset)
	assert.Nil(t, plan.Workout)
}

func TestBuildSubMinimumBudgetFallsBackToShortestReset(t *testing.T) {
	// Below the shortest reset the budget no longer binds: the reset still
	// happens, the workout slot stays empty.
	for _, minutes := range []int{0, 1, 2} {
		in := baseInput(CheckInSignal{Stress: 7, SleepQuality: 5, Energy: 5, TimeAvailableMin: minutes})

		plan, err := Build(in)
		require.NoError(t, err)

		assert.Equal(t, "reset-box-breath", plan.Reset.ID, "budget %d", minutes)
		assert.Nil(t, plan.Workout, "budget %d", minutes)
	}
}

func TestBuildInjuryConstraintExcludesContraindicated(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 3, SleepQuality: 7, Energy: 7, TimeAvailableMin: 30})
	in.Constraints.Injuries = []string{"back"}

	plan, err := Build(in)
	require.NoError(t, err)

	if plan.Workout != nil {
		assert.NotEqual(t, "workout-stretch", plan.Workout.ID)
	}
}

func TestBuildEquipmentGate(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 2, SleepQuality: 9, Energy: 9, TimeAvailableMin: 60})

	plan, err := Build(in)
	require.NoError(t, err)

	// No equipment declared, so the dumbbell circuit is never selected.
	if plan.Workout != nil {
		assert.NotEqual(t, "workout-strength", plan.Workout.ID)
	}
}

func TestBuildNoveltyCooldownAvoidsRecentGroup(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 8, SleepQuality: 6, Energy: 6, TimeAvailableMin: 30})

	plan, err := Build(in)
	require.NoError(t, err)
	firstReset := plan.Reset.ID

	in.RecentNoveltyGroups = []string{plan.Reset.NoveltyGroup}
	plan, err = Build(in)
	require.NoError(t, err)

	assert.NotEqual(t, firstReset, plan.Reset.ID)
}

func TestBuildRepeatsResetRatherThanFailing(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 5, SleepQuality: 6, Energy: 6, TimeAvailableMin: 30})
	in.RecentNoveltyGroups = []string{"breath", "scan"}

	plan, err := Build(in)
	require.NoError(t, err)

	assert.NotNil(t, plan.Reset)
}

func TestBuildNoResetCandidateIsFatal(t *testing.T) {
	in := baseInput(CheckInSignal{Stress: 5, SleepQuality: 6, Energy: 6, TimeAvailableMin: 30})
	lib := &Library{Version: "empty", Items: []Item{
		{ID: "nutrition-hydrate", Kind: KindNutrition, Title: "Water", Bullets: []string{"drink"}, Enabled: true},
	}}
	in.Library = lib

	_, err := Build(in)
	assert.ErrorIs(t, err, ErrNoResetCandidate)
}

func TestBuildTieBreaksLexicographically(t *testing.T) {
	lib := &Library{
		Version: "tie",
		Items: []Item{
			{ID: "reset-b", Kind: KindReset, Title: "B", Minutes: 3, Steps: []string{"s"}, Enabled: true},
			{ID: "reset-a", Kind: KindReset, Title: "A", Minutes: 3, Steps: []string{"s"}, Enabled: true},
			{ID: "nutrition-x", Kind: KindNutrition, Title: "X", Bullets: []string{"b"}, Enabled: true},
		},
	}
	in := baseInput(CheckInSignal{Stress: 5, SleepQuality: 6, Energy: 6, TimeAvailableMin: 30})
	in.Library = lib

	plan, err := Build(in)
	require.NoError(t, err)

	assert.Equal(t, "reset-a", plan.Reset.ID)
}

func TestFocusFor(t *testing.T) {
	assert.Equal(t, FocusDownshift, focusFor(Scores{Load: 80, Capacity: 40}, nil))
	assert.Equal(t, FocusRebuild, focusFor(Scores{Load: 30, Capacity: 70}, nil))
	assert.Equal(t, FocusStabilize, focusFor(Scores{Load: 55, Capacity: 50}, nil))

	// A calm today is pulled toward downshift by a loaded trailing window.
	history := []DaySignal{{Load: 90, Capacity: 30}, {Load: 85, Capacity: 35}, {Load: 80, Capacity: 30}}
	assert.Equal(t, FocusDownshift, focusFor(Scores{Load: 20, Capacity: 60}, history))
}
