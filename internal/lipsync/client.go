package lipsync

import (
	"context"
	"fmt"

	"github.com/replicate/replicate-go"
	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/retry"
)

// retalkingModel is pinned to a known-good version; newer pushes of the
// model have changed the expected inputs before.
const retalkingModel = "xiankgx/video-retalking:1e959997f54af5daa345d6c063f9abeef361029e730d4f57e876e2d5b31b5e9b"

// Client renders the talking-head intro clip by lip-syncing a face video to
// the intro narration audio.
type Client struct {
	rep    *replicate.Client
	face   string
	policy config.RetryPolicy
	log    *zap.Logger
}

func NewClient(cfg config.ReplicateConfig, policy config.RetryPolicy, log *zap.Logger) (*Client, error) {
	rep, err := replicate.NewClient(replicate.WithToken(cfg.APIToken))
	if err != nil {
		return nil, fmt.Errorf("replicate client: %w", err)
	}
	return &Client{rep: rep, face: cfg.FaceImageURL, policy: policy, log: log}, nil
}

// TalkingHead lip-syncs a face to the audio at audioURL and returns the
// rendered clip URL. faceURL overrides the configured default face when it
// is non-empty. audioSeconds bounds how much of the face video is used.
func (c *Client) TalkingHead(ctx context.Context, faceURL, audioURL string, audioSeconds int) (string, error) {
	face := faceURL
	if face == "" {
		face = c.face
	}
	if face == "" {
		return "", fmt.Errorf("no face reference configured")
	}

	input := replicate.PredictionInput{
		"face":           face,
		"input_audio":    audioURL,
		"audio_duration": audioSeconds,
	}

	var url string
	err := retry.Do(ctx, c.policy, "talking head", func(ctx context.Context) error {
		output, err := c.rep.Run(ctx, retalkingModel, input, nil)
		if err != nil {
			return err
		}
		url, err = outputURL(output)
		return err
	})
	if err != nil {
		return "", err
	}

	c.log.Debug("generated talking head",
		zap.String("url", url),
		zap.Int("audio_seconds", audioSeconds))
	return url, nil
}

// outputURL normalizes a prediction output to a single file URL.
// video-retalking returns one URL string.
func outputURL(output replicate.PredictionOutput) (string, error) {
	switch v := output.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("replicate returned no output")
		}
		return v, nil
	case []interface{}:
		if len(v) == 0 {
			return "", fmt.Errorf("replicate returned no output")
		}
		s, ok := v[0].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("replicate output %T is not a URL", v[0])
		}
		return s, nil
	case nil:
		return "", fmt.Errorf("replicate returned no output")
	default:
		return "", fmt.Errorf("unexpected replicate output type %T", output)
	}
}
