package processing

import (
	"context"
	"fmt"
	"strings"

	"github.com/bassimeledath/aristo-bites/models"
)

// TitleResponse is the structured reply for episode titling.
type TitleResponse struct {
	Title string `json:"title" jsonschema_description:"A unique, engaging title for the episode"`
}

var titleResponseSchema = GenerateSchema[TitleResponse]()

// GenerateTitle names a new episode from its topic, steering clear of titles
// the series has already used.
func (c *Client) GenerateTitle(ctx context.Context, series models.Series, topic string, existingTitles []string) (string, error) {
	prompt := fmt.Sprintf(`You are naming a new episode of a philosophy video series.

Series Title: %s
Series Description: %s
Episode Topic: %s

The following titles have already been used in this series:
%s

Generate a unique, engaging title for this episode. The title should:
- Be relevant to the episode topic
- Be different from all existing titles
- Be catchy and engaging
- Be under 100 characters`, series.Title, series.Description, topic, formatExistingTitles(existingTitles))

	resp, err := structuredResponse[TitleResponse](ctx, c, "episode_title", "", prompt, titleResponseSchema)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(resp.Title)
	if title == "" {
		return "", fmt.Errorf("empty title in response")
	}
	return title, nil
}

// formatExistingTitles formats the list of existing titles for the prompt.
func formatExistingTitles(titles []string) string {
	if len(titles) == 0 {
		return "- None (this is the first episode)"
	}
	var formatted []string
	for _, title := range titles {
		if title != "" {
			formatted = append(formatted, fmt.Sprintf("- %s", title))
		}
	}
	if len(formatted) == 0 {
		return "- None (this is the first episode)"
	}
	return strings.Join(formatted, "\n")
}
