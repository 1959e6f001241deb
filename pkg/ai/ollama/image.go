package ollama

import (
	"context"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateImageDescription sends a vision chat request with the raw image and
// returns the model's answer to prompt.
func (c *GraphOllamaClient) GenerateImageDescription(
	ctx context.Context,
	prompt string,
	image ai.Image,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.NewGenerateOptions(ai.GenerateOptions{
		Model:       c.imageModel,
		Temperature: 0.1,
	}, opts...)

	msgs := []api.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Images: []api.ImageData{image.Data}},
	}
	return c.chat(ctx, options.Model, msgs, requestOptions(options, prompt))
}
