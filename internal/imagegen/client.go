package imagegen

import (
	"context"
	"fmt"

	"github.com/replicate/replicate-go"
	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/retry"
)

const fluxModel = "black-forest-labs/flux-schnell"

// Client renders scene keyframe images with flux-schnell on Replicate.
type Client struct {
	rep    *replicate.Client
	policy config.RetryPolicy
	log    *zap.Logger
}

func NewClient(cfg config.ReplicateConfig, policy config.RetryPolicy, log *zap.Logger) (*Client, error) {
	rep, err := replicate.NewClient(replicate.WithToken(cfg.APIToken))
	if err != nil {
		return nil, fmt.Errorf("replicate client: %w", err)
	}
	return &Client{rep: rep, policy: policy, log: log}, nil
}

// GenerateImage renders one 16:9 png for the prompt and returns its URL.
// Transient failures are retried on the configured policy.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	input := replicate.PredictionInput{
		"prompt":              prompt,
		"go_fast":             true,
		"megapixels":          "1",
		"num_outputs":         1,
		"aspect_ratio":        "16:9",
		"output_format":       "png",
		"output_quality":      80,
		"num_inference_steps": 4,
	}

	var url string
	err := retry.Do(ctx, c.policy, "generate image", func(ctx context.Context) error {
		output, err := c.rep.Run(ctx, fluxModel, input, nil)
		if err != nil {
			return err
		}
		url, err = firstOutputURL(output)
		return err
	})
	if err != nil {
		return "", err
	}

	c.log.Debug("generated scene image", zap.String("url", url))
	return url, nil
}

// firstOutputURL pulls the first file URL out of a prediction output. flux
// returns a list of URLs, one per requested output.
func firstOutputURL(output replicate.PredictionOutput) (string, error) {
	switch v := output.(type) {
	case []interface{}:
		if len(v) == 0 {
			return "", fmt.Errorf("replicate returned no output")
		}
		s, ok := v[0].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("replicate output %T is not a URL", v[0])
		}
		return s, nil
	case string:
		if v == "" {
			return "", fmt.Errorf("replicate returned no output")
		}
		return v, nil
	case nil:
		return "", fmt.Errorf("replicate returned no output")
	default:
		return "", fmt.Errorf("unexpected replicate output type %T", output)
	}
}
