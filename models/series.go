package models

import (
	"time"
)

// Series cadence values accepted by the API and the scheduler.
const (
	CadenceDaily  = "daily"
	CadenceWeekly = "weekly"
	CadenceManual = "manual"
)

type Series struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Cadence     string `gorm:"not null;default:'manual'" json:"cadence"`

	// Optional per-series overrides for the narrator voice and the
	// talking-head face reference; empty means the configured defaults.
	VoiceID      string `gorm:"size:255" json:"voice_id,omitempty"`
	FaceImageURL string `gorm:"size:512" json:"face_image_url,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Episode count (computed field, not persisted)
	EpisodeCount int `gorm:"-" json:"episode_count"`
}

func (Series) TableName() string {
	return "series"
}
