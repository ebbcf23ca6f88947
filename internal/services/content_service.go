package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stillpoint-app/stillpoint-backend/internal/engine"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidContentItem = errors.New("content item failed validation")

type ContentService struct {
	db *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{db: db}
}

// Library loads the enabled catalog into the engine's form and validates it.
// The version string changes whenever a row is added or touched, which folds
// content edits into the plan input hash.
func (s *ContentService) Library() (*engine.Library, error) {
	var rows []models.ContentItem
	if err := s.db.Order("slug ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]engine.Item, 0, len(rows))
	var latest time.Time
	for i := range rows {
		row := &rows[i]
		if row.UpdatedAt.After(latest) {
			latest = row.UpdatedAt
		}
		items = append(items, engine.Item{
			ID:                row.Slug,
			Kind:              engine.Kind(row.Kind),
			Title:             row.Title,
			Tags:              decodeStrings(row.Tags),
			Minutes:           row.Minutes,
			IntensityCost:     row.IntensityCost,
			Priority:          row.Priority,
			NoveltyGroup:      row.NoveltyGroup,
			Steps:             decodeStrings(row.Steps),
			Bullets:           decodeStrings(row.Bullets),
			Equipment:         decodeStrings(row.Equipment),
			Contraindications: decodeStrings(row.Contraindications),
			Enabled:           row.Enabled,
		})
	}

	lib := &engine.Library{
		Items:   items,
		Version: fmt.Sprintf("%d-%d", len(rows), latest.Unix()),
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Toggles reads the rule flags, falling back to the default for any flag
// without a row. Unknown keys are ignored.
func (s *ContentService) Toggles() (engine.Toggles, error) {
	toggles := engine.DefaultToggles()
	var rows []models.RuleToggle
	if err := s.db.Find(&rows).Error; err != nil {
		return toggles, err
	}
	for _, row := range rows {
		value, err := strconv.ParseBool(row.Value)
		if err != nil {
			continue
		}
		switch row.Key {
		case "rules.constraints":
			toggles.Constraints = value
		case "rules.novelty":
			toggles.Novelty = value
		case "rules.feedback":
			toggles.Feedback = value
		case "rules.bad_day":
			toggles.BadDay = value
		case "rules.recovery_debt":
			toggles.RecoveryDebt = value
		case "rules.circadian_anchor":
			toggles.CircadianAnchor = value
		case "rules.safety":
			toggles.Safety = value
		}
	}
	return toggles, nil
}

// SetToggle upserts one rule flag by key.
func (s *ContentService) SetToggle(key string, value bool) error {
	row := models.RuleToggle{Key: key, Value: strconv.FormatBool(value), Type: "bool"}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// DeleteToggle removes a rule flag row so the compiled default applies again.
// Returns false when no row existed.
func (s *ContentService) DeleteToggle(key string) (bool, error) {
	result := s.db.Where("key = ?", key).Delete(&models.RuleToggle{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpsertItem validates one catalog entry against the engine schema before
// writing it. Existing rows are updated in place; slugs are never deleted.
func (s *ContentService) UpsertItem(item engine.Item) error {
	probe := engine.Library{Items: []engine.Item{item}}
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContentItem, err)
	}
	row := models.ContentItem{
		Slug:              item.ID,
		Kind:              string(item.Kind),
		Title:             item.Title,
		Tags:              encodeStrings(item.Tags),
		Minutes:           item.Minutes,
		IntensityCost:     item.IntensityCost,
		Priority:          item.Priority,
		NoveltyGroup:      item.NoveltyGroup,
		Steps:             encodeStrings(item.Steps),
		Bullets:           encodeStrings(item.Bullets),
		Equipment:         encodeStrings(item.Equipment),
		Contraindications: encodeStrings(item.Contraindications),
		Enabled:           item.Enabled,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind", "title", "tags", "minutes", "intensity_cost", "priority",
			"novelty_group", "steps", "bullets", "equipment",
			"contraindications", "enabled", "updated_at",
		}),
	}).Create(&row).Error
}

// ListItems returns the full catalog including disabled rows.
func (s *ContentService) ListItems() ([]models.ContentItem, error) {
	var rows []models.ContentItem
	err := s.db.Order("slug ASC").Find(&rows).Error
	return rows, err
}

// SeedDefaults inserts the starter catalog. Existing slugs are left alone so
// operator edits survive restarts.
func (s *ContentService) SeedDefaults() error {
	for _, item := range defaultCatalog() {
		row := models.ContentItem{
			Slug:              item.ID,
			Kind:              string(item.Kind),
			Title:             item.Title,
			Tags:              encodeStrings(item.Tags),
			Minutes:           item.Minutes,
			IntensityCost:     item.IntensityCost,
			Priority:          item.Priority,
			NoveltyGroup:      item.NoveltyGroup,
			Steps:             encodeStrings(item.Steps),
			Bullets:           encodeStrings(item.Bullets),
			Equipment:         encodeStrings(item.Equipment),
			Contraindications: encodeStrings(item.Contraindications),
			Enabled:           item.Enabled,
		}
		err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeStrings(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, _ := json.Marshal(values)
	return datatypes.JSON(raw)
}

func defaultCatalog() []engine.Item {
	return []engine.Item{
		{
			ID: "reset-box-breath", Kind: engine.KindReset, Title: "Box breathing",
			Tags: []string{"calming", "breath"}, Minutes: 3, IntensityCost: 1, Priority: 5,
			NoveltyGroup: "breath",
			Steps: []string{
				"Sit upright, exhale fully",
				"Inhale through the nose for 4 counts",
				"Hold for 4, exhale for 4, hold for 4",
				"Repeat for the full duration",
			},
			Enabled: true,
		},
		{
			ID: "reset-long-exhale", Kind: engine.KindReset, Title: "Extended exhale",
			Tags: []string{"calming", "breath"}, Minutes: 2, IntensityCost: 1, Priority: 4,
			NoveltyGroup: "breath",
			Steps: []string{
				"Inhale through the nose for 4 counts",
				"Exhale slowly through pursed lips for 8 counts",
				"Repeat, keeping shoulders loose",
			},
			Enabled: true,
		},
		{
			ID: "reset-body-scan", Kind: engine.KindReset, Title: "Standing body scan",
			Tags: []string{"grounding"}, Minutes: 4, IntensityCost: 1, Priority: 3,
			NoveltyGroup: "grounding",
			Steps: []string{
				"Stand with feet hip-width apart",
				"Move attention slowly from feet to head",
				"Release tension at each stop",
			},
			Enabled: true,
		},
		{
			ID: "reset-walk-drop", Kind: engine.KindReset, Title: "Walk and drop shoulders",
			Tags: []string{"grounding", "movement"}, Minutes: 5, IntensityCost: 1, Priority: 2,
			NoveltyGroup: "walk",
			Steps: []string{
				"Walk at an easy pace",
				"Every ten steps, exhale and drop the shoulders",
				"Finish with three slow breaths",
			},
			Enabled: true,
		},
		{
			ID: "workout-easy-walk", Kind: engine.KindWorkout, Title: "Easy walk",
			Tags: []string{"recovery", "low_intensity"}, Minutes: 20, IntensityCost: 1, Priority: 4,
			NoveltyGroup: "walk",
			Enabled:      true,
		},
		{
			ID: "workout-mobility-flow", Kind: engine.KindWorkout, Title: "Mobility flow",
			Tags: []string{"recovery", "mobility"}, Minutes: 15, IntensityCost: 2, Priority: 3,
			NoveltyGroup: "mobility",
			Enabled:      true,
		},
		{
			ID: "workout-strength-basic", Kind: engine.KindWorkout, Title: "Basic strength circuit",
			Tags: []string{"strength"}, Minutes: 30, IntensityCost: 3, Priority: 3,
			NoveltyGroup: "strength", Equipment: []string{"dumbbells"},
			Contraindications: []string{"shoulder", "back"},
			Enabled:           true,
		},
		{
			ID: "workout-intervals-short", Kind: engine.KindWorkout, Title: "Short intervals",
			Tags: []string{"energize", "cardio"}, Minutes: 25, IntensityCost: 4, Priority: 2,
			NoveltyGroup:      "cardio",
			Contraindications: []string{"knee"},
			Enabled:           true,
		},
		{
			ID: "nutrition-steady-plate", Kind: engine.KindNutrition, Title: "Steady plate",
			Tags: []string{"steady"}, IntensityCost: 1, Priority: 4,
			NoveltyGroup: "steady",
			Bullets: []string{
				"Protein with every meal",
				"Front-load carbs earlier in the day",
				"Cut caffeine after midday",
			},
			Enabled: true,
		},
		{
			ID: "nutrition-recovery-fuel", Kind: engine.KindNutrition, Title: "Recovery fuel",
			Tags: []string{"recovery"}, IntensityCost: 1, Priority: 3,
			NoveltyGroup: "recovery",
			Bullets: []string{
				"Add an extra serving of slow carbs at dinner",
				"Salt food normally, hydrate through the morning",
				"No alcohol tonight",
			},
			Enabled: true,
		},
		{
			ID: "nutrition-light-evening", Kind: engine.KindNutrition, Title: "Light evening",
			Tags: []string{"calming"}, IntensityCost: 1, Priority: 2,
			NoveltyGroup: "light",
			Bullets: []string{
				"Keep dinner light and early",
				"Herbal tea instead of dessert",
			},
			Enabled: true,
		},
	}
}
