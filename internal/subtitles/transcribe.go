package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
)

// Transcriber turns narration audio into timed segments with whisper.
type Transcriber struct {
	client openai.Client
	log    *zap.Logger
}

// NewTranscriber builds a whisper transcriber. Extra request options (a base
// URL override, for example) are applied after the API key.
func NewTranscriber(cfg config.OpenAIConfig, log *zap.Logger, opts ...option.RequestOption) *Transcriber {
	options := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	return &Transcriber{client: openai.NewClient(options...), log: log}
}

// verboseTranscription is the verbose_json response shape. The SDK's typed
// response only surfaces the text, so segments are read from the raw body.
type verboseTranscription struct {
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe transcribes the audio file at path into timed segments.
func (t *Transcriber) Transcribe(ctx context.Context, path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio %s: %w", path, err)
	}
	defer f.Close()

	tr, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModelWhisper1,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	var verbose verboseTranscription
	if err := json.Unmarshal([]byte(tr.RawJSON()), &verbose); err != nil {
		return nil, fmt.Errorf("parse verbose transcription: %w", err)
	}
	if len(verbose.Segments) == 0 {
		return nil, fmt.Errorf("transcription returned no segments")
	}

	segments := make([]Segment, 0, len(verbose.Segments))
	for _, s := range verbose.Segments {
		segments = append(segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}

	t.log.Debug("transcribed audio",
		zap.String("path", path),
		zap.Float64("duration", verbose.Duration),
		zap.Int("segments", len(segments)))
	return segments, nil
}
