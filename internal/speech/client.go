package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
)

// Client synthesizes narration audio through the ElevenLabs text-to-speech
// API. One request returns the full mp3 for the given text.
type Client struct {
	cfg  config.ElevenLabsConfig
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg config.ElevenLabsConfig, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 2 * time.Minute},
		log:  log,
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize renders text as speech and returns the mp3 bytes. voiceID
// overrides the configured default voice when non-empty.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = c.cfg.VoiceID
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", strings.TrimRight(c.cfg.BaseURL, "/"), voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("elevenlabs synthesize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs synthesize: empty audio response")
	}

	c.log.Debug("synthesized speech",
		zap.String("voice_id", voiceID),
		zap.Int("text_chars", len(text)),
		zap.Int("audio_bytes", len(audio)))
	return audio, nil
}
