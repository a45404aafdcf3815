package processing

import (
	"context"
	"fmt"
	"strings"
)

// SceneDescription pairs a keyframe image prompt with the motion prompt used
// to animate it.
type SceneDescription struct {
	ImageDescription string `json:"image_description" jsonschema_description:"A 1-2 sentence (about 15 words) visual description of the scene's key frame"`
	VideoDescription string `json:"video_description" jsonschema_description:"A suitable action for the image description"`
}

var sceneDescriptionSchema = GenerateSchema[SceneDescription]()

const sceneSystemMessage = "You are an AI assistant specialized in analyzing scripts and extracting descriptions for images and videos."

// SplitScript chops a script into n parts of equal word count; the last part
// takes the remainder.
func SplitScript(script string, n int) []string {
	if n <= 0 {
		return nil
	}
	words := strings.Fields(script)
	perPart := len(words) / n

	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		start := i * perPart
		end := start + perPart
		if i == n-1 {
			end = len(words)
		}
		parts = append(parts, strings.Join(words[start:end], " "))
	}
	return parts
}

// ExtractScenes splits the script into n sequential parts and extracts one
// scene description per part, in script order.
func (c *Client) ExtractScenes(ctx context.Context, script string, n int) ([]SceneDescription, error) {
	parts := SplitScript(script, n)

	scenes := make([]SceneDescription, 0, n)
	for i, part := range parts {
		prompt := fmt.Sprintf(`Analyze the following part of a script and provide an image and a video description that corresponds sequentially to the content. The image description should be 1-2 sentences (about 15 words). The video description should describe a suitable action for the image description.
Make sure the image and video description do not violate any ethical standards (even if the script content does so).

Part %d of the script:

%s`, i+1, part)

		scene, err := structuredResponse[SceneDescription](ctx, c, "scene_description", sceneSystemMessage, prompt, sceneDescriptionSchema)
		if err != nil {
			return nil, fmt.Errorf("extract scene %d: %w", i+1, err)
		}
		scenes = append(scenes, *scene)
	}
	return scenes, nil
}
