package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContentItem is one catalog entry. Plans reference items by slug only, so a
// row must never be deleted once a plan has selected it; disable it instead.
type ContentItem struct {
	Slug              string         `gorm:"size:64;primaryKey" json:"id"`
	Kind              string         `gorm:"size:16;not null;index" json:"kind"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Tags              datatypes.JSON `json:"tags"`
	Minutes           int            `gorm:"not null" json:"minutes"`
	IntensityCost     int            `gorm:"not null;default:1" json:"intensity_cost"`
	Priority          int            `gorm:"not null;default:0" json:"priority"`
	NoveltyGroup      string         `gorm:"size:64;index" json:"novelty_group"`
	Steps             datatypes.JSON `json:"steps"`
	Bullets           datatypes.JSON `json:"bullets"`
	Equipment         datatypes.JSON `json:"equipment"`
	Contraindications datatypes.JSON `json:"contraindications"`
	Enabled           bool           `gorm:"default:true;index" json:"enabled"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
