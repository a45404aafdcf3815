package narration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
)

// IntroPrefix is the fixed cold open every episode intro starts with.
const IntroPrefix = "Welcome to AristoBites."

// Narration is the two-part episode script.
type Narration struct {
	Intro string `json:"intro" jsonschema_description:"A catchy one-sentence introduction for the episode."`
	Body  string `json:"body" jsonschema_description:"The main monologue of the episode."`
}

const toolName = "record_narration"

const systemPrompt = "You are a witty expert in creating engaging content for short-form philosophy videos."

const promptTemplate = `Given the
user query: %s

and context: %s

Generate the following:
1. "intro": A catchy one-sentence introduction that begins with "Welcome to AristoBites. In today's episode...".
2. "body": You are a David Mitchell impersonator, famous British comedian and actor. Craft an engaging paragraph for a short-form philosophy video, structured as follows:
- Start with a vivid unique analogy or example that introduces the main concept.
- Present two interesting, lesser-known ideas that explore this concept.
- Each idea should be explained in 3 sentences, using accessible language and concrete examples.
- Conclude with a brief, witty observation that ties the ideas together.

Remember:
- Speak in the style of David Mitchell.
- Aim for a total length of about 6-8 sentences.
- Do not use puns.
- Use the style of a YouTube science educator: informative yet entertaining. Avoid filler words and phrases.
- Balance accessibility with depth; explain complex ideas using relatable analogies.
- Keep the language simple. Avoid overly academic language; keep it engaging, but not too casual.
- Introduce novel concepts that viewers are unlikely to be familiar with.`

// narrationProperties is the cached tool input schema.
var narrationProperties = func() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(Narration{}).Properties
}()

// Client generates episode narration through Anthropic tool use, which
// forces the model to answer with a structured {intro, body} payload.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
	log    *zap.Logger
}

// NewClient builds a narration client. Extra request options (a base URL
// override, for example) are applied after the API key.
func NewClient(cfg config.AnthropicConfig, log *zap.Logger, opts ...option.RequestOption) *Client {
	options := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	return &Client{
		client: anthropic.NewClient(options...),
		model:  anthropic.Model(cfg.Model),
		log:    log,
	}
}

// Generate writes the intro and body narration for a topic, grounded in the
// combined research text.
func (c *Client) Generate(ctx context.Context, topic, research string) (*Narration, error) {
	prompt := fmt.Sprintf(promptTemplate, topic, research)

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   5000,
		Temperature: anthropic.Float(0.9),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        toolName,
					Description: anthropic.String("Record the generated episode narration."),
					InputSchema: anthropic.ToolInputSchemaParam{Properties: narrationProperties},
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic narration: %w", err)
	}

	for _, block := range msg.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		var n Narration
		if err := json.Unmarshal([]byte(toolUse.JSON.Input.Raw()), &n); err != nil {
			return nil, fmt.Errorf("parse narration tool input: %w", err)
		}
		if strings.TrimSpace(n.Intro) == "" || strings.TrimSpace(n.Body) == "" {
			return nil, fmt.Errorf("narration response missing intro or body")
		}
		if !strings.HasPrefix(n.Intro, IntroPrefix) {
			c.log.Warn("narration intro missing the expected cold open", zap.String("intro", n.Intro))
		}
		c.log.Debug("generated narration",
			zap.String("topic", topic),
			zap.Int("intro_chars", len(n.Intro)),
			zap.Int("body_chars", len(n.Body)))
		return &n, nil
	}
	return nil, fmt.Errorf("narration response contained no tool call")
}
