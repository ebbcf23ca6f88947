// Package engine contains the deterministic day-plan core: stress profile
// classification, candidate selection and contract normalization. Everything
// here is a pure function of its inputs; no clocks, no randomness, no I/O.
package engine

import (
	"errors"
	"fmt"
	"sort"
)

type Kind string

const (
	KindWorkout   Kind = "workout"
	KindReset     Kind = "reset"
	KindNutrition Kind = "nutrition"
)

// Item is one content catalog entry as the engine sees it.
type Item struct {
	ID                string
	Kind              Kind
	Title             string
	Tags              []string
	Minutes           int
	IntensityCost     int
	Priority          int
	NoveltyGroup      string
	Steps             []string
	Bullets           []string
	Equipment         []string
	Contraindications []string
	Enabled           bool
}

// Library is the validated catalog snapshot the builder selects from.
// Version identifies the snapshot and is folded into the input hash.
type Library struct {
	Items   []Item
	Version string
}

var ErrEmptyLibrary = errors.New("content library has no enabled items")

// Validate checks the catalog against the schema the builder assumes.
// Items are trusted at selection time, so this must run at load time.
func (l *Library) Validate() error {
	enabled := 0
	seen := make(map[string]bool, len(l.Items))
	for i := range l.Items {
		item := &l.Items[i]
		if item.ID == "" {
			return fmt.Errorf("item %d: missing id", i)
		}
		if seen[item.ID] {
			return fmt.Errorf("item %q: duplicate id", item.ID)
		}
		seen[item.ID] = true
		switch item.Kind {
		case KindWorkout, KindReset, KindNutrition:
		default:
			return fmt.Errorf("item %q: unknown kind %q", item.ID, item.Kind)
		}
		if item.Title == "" {
			return fmt.Errorf("item %q: missing title", item.ID)
		}
		if item.Minutes <= 0 && item.Kind != KindNutrition {
			return fmt.Errorf("item %q: minutes must be positive", item.ID)
		}
		if item.Kind == KindReset {
			if item.Minutes < 2 || item.Minutes > 5 {
				return fmt.Errorf("item %q: reset minutes %d outside [2,5]", item.ID, item.Minutes)
			}
			if len(item.Steps) == 0 {
				return fmt.Errorf("item %q: reset requires steps", item.ID)
			}
		}
		if item.Kind == KindNutrition && len(item.Bullets) == 0 {
			return fmt.Errorf("item %q: nutrition requires bullets", item.ID)
		}
		if item.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return ErrEmptyLibrary
	}
	return nil
}

// ByKind returns the enabled items of one kind sorted by id, so every
// downstream iteration order is stable.
func (l *Library) ByKind(kind Kind) []Item {
	var out []Item
	for _, item := range l.Items {
		if item.Enabled && item.Kind == kind {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Find returns the item with the given id, enabled or not. Plans reference
// items by id, and a disabled item must still render for old plans.
func (l *Library) Find(id string) *Item {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return &l.Items[i]
		}
	}
	return nil
}
