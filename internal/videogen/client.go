package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/retry"
)

// ErrMaxAttempts reports a generation that never reached a terminal state
// within the polling budget.
var ErrMaxAttempts = errors.New("max polling attempts reached")

// Client drives Luma Dream Machine image-to-video generations: create a
// generation from a still frame plus a motion prompt, then poll it to a
// terminal state.
type Client struct {
	cfg     config.LumaConfig
	retry   config.RetryPolicy
	polling config.PollingPolicy
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.LumaConfig, retryPolicy config.RetryPolicy, polling config.PollingPolicy, log *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		retry:   retryPolicy,
		polling: polling,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type keyframe struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type createRequest struct {
	Prompt      string              `json:"prompt"`
	Keyframes   map[string]keyframe `json:"keyframes,omitempty"`
	AspectRatio string              `json:"aspect_ratio"`
}

type generation struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason"`
	Assets        struct {
		Video string `json:"video"`
	} `json:"assets"`
}

// GenerateClip animates the image at imageURL with the motion prompt and
// returns the finished clip URL. Creation is retried on the bounded policy;
// the generation is then polled until it completes, fails, or the polling
// budget runs out.
func (c *Client) GenerateClip(ctx context.Context, prompt, imageURL string) (string, error) {
	var gen generation
	err := retry.Do(ctx, c.retry, "create luma generation", func(ctx context.Context) error {
		g, err := c.createGeneration(ctx, prompt, imageURL)
		if err != nil {
			return err
		}
		gen = *g
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.Debug("created luma generation", zap.String("generation_id", gen.ID))
	return c.pollGeneration(ctx, gen.ID)
}

func (c *Client) createGeneration(ctx context.Context, prompt, imageURL string) (*generation, error) {
	payload := createRequest{
		Prompt:      prompt,
		AspectRatio: "16:9",
	}
	if imageURL != "" {
		payload.Keyframes = map[string]keyframe{
			"frame0": {Type: "image", URL: imageURL},
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/generations", strings.TrimRight(c.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("luma create generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("luma create generation: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var gen generation
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}
	if gen.ID == "" {
		return nil, fmt.Errorf("luma create generation: response missing id")
	}
	return &gen, nil
}

func (c *Client) getGeneration(ctx context.Context, id string) (*generation, error) {
	endpoint := fmt.Sprintf("%s/generations/%s", strings.TrimRight(c.cfg.BaseURL, "/"), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("luma get generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("luma get generation: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var gen generation
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &gen, nil
}

// pollGeneration waits for a terminal state. Transient status-check errors
// are logged and spend the attempt; the loop never runs longer than
// MaxAttempts polls.
func (c *Client) pollGeneration(ctx context.Context, id string) (string, error) {
	attempts := c.polling.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		gen, err := c.getGeneration(ctx, id)
		if err != nil {
			c.log.Warn("luma status check failed",
				zap.String("generation_id", id),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			switch gen.State {
			case "completed":
				if gen.Assets.Video == "" {
					return "", fmt.Errorf("luma generation %s completed without a video asset", id)
				}
				return gen.Assets.Video, nil
			case "failed":
				return "", fmt.Errorf("luma generation %s failed: %s", id, gen.FailureReason)
			}
		}

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(c.polling.Interval):
		case <-ctx.Done():
			return "", fmt.Errorf("poll luma generation %s: %w", id, ctx.Err())
		}
	}
	return "", fmt.Errorf("poll luma generation %s: %w", id, ErrMaxAttempts)
}
