package tasks

import "encoding/json"

// ---
// QUEUE DEFINITIONS
// ---
// Pipeline stages are chained through redis lists, one queue per stage.
const (
	// QueueResearch is the first step: run the research workflow for a topic.
	QueueResearch = "q_episode_research"

	// QueueNarration is the second step: turn research into a narration script.
	QueueNarration = "q_episode_narration"

	// QueueAssets is the third step: audio, talking head, scene images and clips.
	QueueAssets = "q_episode_assets"

	// QueueAssembly is the final step: stitch assets into the published video.
	QueueAssembly = "q_episode_assembly"
)

// SeriesCreatedChannel carries new-series notifications from the API to the
// scheduler so cron entries pick up without a restart.
const SeriesCreatedChannel = "series_created"

// ---
// TASK PAYLOADS
// ---

// EpisodeTaskPayload is the payload for every episode stage queue.
type EpisodeTaskPayload struct {
	EpisodeID uint `json:"episode_id"`
}

// SeriesCreatedMessage is published on SeriesCreatedChannel.
type SeriesCreatedMessage struct {
	SeriesID uint   `json:"series_id"`
	Cadence  string `json:"cadence"`
}

// ---
// HELPER FUNCTIONS
// ---

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
