package models

import (
	"time"
)

// Episode statuses. Each pipeline stage moves an episode from pending_<stage>
// through processing_<stage> to pending_<next>; failures land on the
// terminal failed_<stage>.
const (
	StatusPendingResearch    = "pending_research"
	StatusProcessingResearch = "processing_research"
	StatusFailedResearch     = "failed_research"

	StatusPendingNarration    = "pending_narration"
	StatusProcessingNarration = "processing_narration"
	StatusFailedNarration     = "failed_narration"

	StatusPendingAssets    = "pending_assets"
	StatusProcessingAssets = "processing_assets"
	StatusFailedAssets     = "failed_assets"

	StatusPendingAssembly    = "pending_assembly"
	StatusProcessingAssembly = "processing_assembly"
	StatusFailedAssembly     = "failed_assembly"

	StatusComplete = "complete"
)

type Episode struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SeriesID uint   `gorm:"not null;index" json:"series_id"`
	Topic    string `gorm:"type:text;not null" json:"topic"`
	Title    string `gorm:"size:255" json:"title"`

	Research       string `gorm:"type:text" json:"research,omitempty"`
	NarrationIntro string `gorm:"type:text" json:"narration_intro,omitempty"`
	NarrationBody  string `gorm:"type:text" json:"narration_body,omitempty"`

	IntroAudioURL string `gorm:"size:512" json:"intro_audio_url,omitempty"`
	BodyAudioURL  string `gorm:"size:512" json:"body_audio_url,omitempty"`
	IntroVideoURL string `gorm:"size:512" json:"intro_video_url,omitempty"`
	VideoURL      string `gorm:"size:512" json:"video_url,omitempty"`

	Status string `gorm:"default:'pending_research'" json:"status"`
	Error  string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Scenes []EpisodeScene `gorm:"foreignKey:EpisodeID" json:"scenes,omitempty"`
}

func (Episode) TableName() string {
	return "episodes"
}
