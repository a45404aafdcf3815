package models

import "time"

type EpisodeScene struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	EpisodeID        uint      `gorm:"not null;index" json:"episode_id"`
	SceneNumber      int       `gorm:"not null" json:"scene_number"`
	ImageDescription string    `gorm:"type:text;not null" json:"image_description"`
	VideoDescription string    `gorm:"type:text;not null" json:"video_description"`
	ImageURL         string    `gorm:"size:512" json:"image_url,omitempty"`
	ClipURL          string    `gorm:"size:512" json:"clip_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (EpisodeScene) TableName() string {
	return "episode_scenes"
}
