package openai

import (
	"context"
	"errors"
	"time"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateImageDescription sends a vision request with the image inlined as a
// data URL and returns the model's answer to prompt.
func (c *GraphOpenAIClient) GenerateImageDescription(
	ctx context.Context,
	prompt string,
	image ai.Image,
	opts ...ai.GenerateOption,
) (string, error) {
	if !c.HasImage() {
		return "", ErrNotConfigured
	}

	options := ai.NewGenerateOptions(ai.GenerateOptions{
		Model:       c.imageModel,
		Temperature: 0.1,
	}, opts...)

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: image.DataURL(),
				}),
			}),
		},
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxTokens = openai.Int(int64(options.MaxTokens))
	}

	err := c.imageLock.Acquire(ctx, 1)
	if err != nil {
		return "", err
	}
	defer c.imageLock.Release(1)

	start := time.Now()
	response, err := c.ImageClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	c.Record(options.Model, int(response.Usage.PromptTokens), int(response.Usage.CompletionTokens), time.Since(start))

	if len(response.Choices) == 0 {
		return "", errors.New("empty vision response")
	}
	return response.Choices[0].Message.Content, nil
}
