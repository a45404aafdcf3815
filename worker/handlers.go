package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bassimeledath/aristo-bites/models"
	"github.com/bassimeledath/aristo-bites/tasks"
)

func (p *Processor) setStatus(episode *models.Episode, status string) {
	p.DB.Model(episode).Update("status", status)
}

// failEpisode records the failure on the episode and hands the error back to
// the processor loop for logging.
func (p *Processor) failEpisode(episode *models.Episode, status string, err error) error {
	p.DB.Model(episode).Updates(map[string]interface{}{
		"status": status,
		"error":  err.Error(),
	})
	return err
}

// HandleResearch processes tasks from QueueResearch: it runs the research
// workflow for the episode topic and chains to narration.
func (p *Processor) HandleResearch(ctx context.Context, payload string) error {
	var task tasks.EpisodeTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	var episode models.Episode
	if err := p.DB.First(&episode, task.EpisodeID).Error; err != nil {
		return err
	}

	p.log.Info("researching episode",
		zap.Uint("episode_id", episode.ID),
		zap.String("topic", episode.Topic))
	p.setStatus(&episode, models.StatusProcessingResearch)

	research, err := p.stages.Research.Research(ctx, episode.Topic)
	if err != nil {
		return p.failEpisode(&episode, models.StatusFailedResearch, err)
	}

	if err := p.DB.Model(&episode).Update("research", research).Error; err != nil {
		return err
	}

	next := tasks.EpisodeTaskPayload{EpisodeID: episode.ID}
	if err := p.Enqueue(ctx, tasks.QueueNarration, next); err != nil {
		return p.failEpisode(&episode, models.StatusFailedResearch, err)
	}
	p.setStatus(&episode, models.StatusPendingNarration)
	return nil
}

// HandleNarration processes tasks from QueueNarration: it names the episode
// and generates the intro/body narration from the research.
func (p *Processor) HandleNarration(ctx context.Context, payload string) error {
	var task tasks.EpisodeTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	var episode models.Episode
	if err := p.DB.First(&episode, task.EpisodeID).Error; err != nil {
		return err
	}

	var series models.Series
	if err := p.DB.First(&series, episode.SeriesID).Error; err != nil {
		return err
	}

	p.log.Info("narrating episode", zap.Uint("episode_id", episode.ID))
	p.setStatus(&episode, models.StatusProcessingNarration)

	// Prior titles keep the naming model from repeating itself.
	var siblings []models.Episode
	p.DB.Where("series_id = ? AND id != ?", episode.SeriesID, episode.ID).Find(&siblings)
	var existingTitles []string
	for _, e := range siblings {
		if e.Title != "" {
			existingTitles = append(existingTitles, e.Title)
		}
	}

	title, err := p.stages.Titles.GenerateTitle(ctx, series, episode.Topic, existingTitles)
	if err != nil {
		return p.failEpisode(&episode, models.StatusFailedNarration, err)
	}

	narr, err := p.stages.Narrator.Generate(ctx, episode.Topic, episode.Research)
	if err != nil {
		return p.failEpisode(&episode, models.StatusFailedNarration, err)
	}

	updates := map[string]interface{}{
		"title":           title,
		"narration_intro": narr.Intro,
		"narration_body":  narr.Body,
	}
	if err := p.DB.Model(&episode).Updates(updates).Error; err != nil {
		return err
	}
	p.log.Info("narration ready",
		zap.Uint("episode_id", episode.ID),
		zap.String("title", title))

	next := tasks.EpisodeTaskPayload{EpisodeID: episode.ID}
	if err := p.Enqueue(ctx, tasks.QueueAssets, next); err != nil {
		return p.failEpisode(&episode, models.StatusFailedNarration, err)
	}
	p.setStatus(&episode, models.StatusPendingAssets)
	return nil
}

// HandleAssets processes tasks from QueueAssets: narration audio, the talking
// head intro, and one image+clip per scene.
func (p *Processor) HandleAssets(ctx context.Context, payload string) error {
	var task tasks.EpisodeTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	var episode models.Episode
	if err := p.DB.First(&episode, task.EpisodeID).Error; err != nil {
		return err
	}

	if episode.NarrationIntro == "" || episode.NarrationBody == "" {
		return p.failEpisode(&episode, models.StatusFailedAssets,
			fmt.Errorf("episode %d has no narration", episode.ID))
	}

	var series models.Series
	if err := p.DB.First(&series, episode.SeriesID).Error; err != nil {
		return err
	}

	p.log.Info("generating assets", zap.Uint("episode_id", episode.ID))
	p.setStatus(&episode, models.StatusProcessingAssets)

	assets, err := p.stages.Assets.GenerateAssets(ctx,
		episode.NarrationIntro, episode.NarrationBody,
		series.VoiceID, series.FaceImageURL)
	if err != nil {
		return p.failEpisode(&episode, models.StatusFailedAssets, err)
	}

	// Save the asset URLs and scene rows in a single transaction.
	err = p.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"intro_audio_url": assets.IntroAudioURL,
			"body_audio_url":  assets.BodyAudioURL,
			"intro_video_url": assets.IntroVideoURL,
		}
		if err := tx.Model(&episode).Updates(updates).Error; err != nil {
			return err
		}
		for _, s := range assets.Scenes {
			scene := models.EpisodeScene{
				EpisodeID:        episode.ID,
				SceneNumber:      s.Number,
				ImageDescription: s.ImageDescription,
				VideoDescription: s.VideoDescription,
				ImageURL:         s.ImageURL,
				ClipURL:          s.ClipURL,
			}
			if err := tx.Create(&scene).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return p.failEpisode(&episode, models.StatusFailedAssets, err)
	}
	p.log.Info("assets ready",
		zap.Uint("episode_id", episode.ID),
		zap.Int("scenes", len(assets.Scenes)))

	next := tasks.EpisodeTaskPayload{EpisodeID: episode.ID}
	if err := p.Enqueue(ctx, tasks.QueueAssembly, next); err != nil {
		return p.failEpisode(&episode, models.StatusFailedAssets, err)
	}
	p.setStatus(&episode, models.StatusPendingAssembly)
	return nil
}

// HandleAssembly processes tasks from QueueAssembly: it stitches the intro,
// clips and narration audio into the published video.
func (p *Processor) HandleAssembly(ctx context.Context, payload string) error {
	var task tasks.EpisodeTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	var episode models.Episode
	err := p.DB.Preload("Scenes", func(db *gorm.DB) *gorm.DB {
		return db.Order("scene_number ASC")
	}).First(&episode, task.EpisodeID).Error
	if err != nil {
		return err
	}

	p.log.Info("assembling episode", zap.Uint("episode_id", episode.ID))
	p.setStatus(&episode, models.StatusProcessingAssembly)

	clipURLs := make([]string, 0, len(episode.Scenes))
	for _, s := range episode.Scenes {
		if s.ClipURL == "" {
			return p.failEpisode(&episode, models.StatusFailedAssembly,
				fmt.Errorf("scene %d of episode %d has no clip", s.SceneNumber, episode.ID))
		}
		clipURLs = append(clipURLs, s.ClipURL)
	}

	videoURL, err := p.stages.Assembly.AssembleEpisode(ctx,
		episode.IntroVideoURL, clipURLs, episode.BodyAudioURL)
	if err != nil {
		return p.failEpisode(&episode, models.StatusFailedAssembly, err)
	}

	updates := map[string]interface{}{
		"video_url": videoURL,
		"status":    models.StatusComplete,
	}
	if err := p.DB.Model(&episode).Updates(updates).Error; err != nil {
		return err
	}
	p.log.Info("episode complete",
		zap.Uint("episode_id", episode.ID),
		zap.String("video_url", videoURL))
	return nil
}
