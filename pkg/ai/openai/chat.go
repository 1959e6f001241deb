package openai

import (
	"context"
	"errors"
	"time"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// ErrNotConfigured is returned when the client has no key for the endpoint.
var ErrNotConfigured = errors.New("openai endpoint not configured")

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
//
// Example:
//
//	resp, err := client.GenerateCompletion(ctx, prompt,
//		ai.WithSystemPrompts(ai.RelationSystemPrompt),
//		ai.WithMaxTokens(50),
//	)
func (c *GraphOpenAIClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	if !c.HasChat() {
		return "", ErrNotConfigured
	}

	options := ai.NewGenerateOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.3,
	}, opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxTokens = openai.Int(int64(options.MaxTokens))
	}

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	c.Record(options.Model, int(response.Usage.PromptTokens), int(response.Usage.CompletionTokens), time.Since(start))

	if len(response.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return response.Choices[0].Message.Content, nil
}
