package processing

import (
	"context"
	"fmt"
)

// SubQuestionsResponse is the structured reply for sub-question generation.
type SubQuestionsResponse struct {
	Questions []string `json:"questions" jsonschema_description:"The generated sub-questions, one entry per question"`
}

var subQuestionsSchema = GenerateSchema[SubQuestionsResponse]()

// GenerateSubQuestions asks for n distinct sub-questions about a topic. The
// research workflow enforces the exact count; this returns whatever the
// model produced.
func (c *Client) GenerateSubQuestions(ctx context.Context, topic string, n int) ([]string, error) {
	system := fmt.Sprintf("You are an AI assistant that generates relevant philosophy based sub-questions to gather more information about a given topic. The questions should be distinct from one another and try to cover as much ground about the topic as possible. Generate exactly %d clear and specific questions.", n)
	prompt := fmt.Sprintf("Generate %d sub-questions to gather more information about: %s", n, topic)

	resp, err := structuredResponse[SubQuestionsResponse](ctx, c, "sub_questions", system, prompt, subQuestionsSchema)
	if err != nil {
		return nil, err
	}
	return resp.Questions, nil
}
