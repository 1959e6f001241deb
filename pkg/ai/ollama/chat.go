package ollama

import (
	"context"
	"unicode/utf8"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

// contextSize estimates num_ctx for the prompt. Returns 0 when the default
// context window is large enough. Without the BPE ranks (offline hosts) every
// rune counts as one token.
func contextSize(texts ...string) int {
	tokens := 200
	enc, err := tiktoken.GetEncoding("o200k_base")
	for _, t := range texts {
		if err != nil {
			tokens += utf8.RuneCountInString(t)
			continue
		}
		tokens += len(enc.Encode(t, nil, nil))
	}
	if tokens > 4096 {
		return tokens
	}
	return 0
}

func requestOptions(options ai.GenerateOptions, texts ...string) map[string]any {
	reqOpts := map[string]any{"temperature": options.Temperature}
	if options.MaxTokens > 0 {
		reqOpts["num_predict"] = options.MaxTokens
	}
	if numCtx := contextSize(texts...); numCtx > 0 {
		reqOpts["num_ctx"] = numCtx
	}
	return reqOpts
}

// chat runs one non-streaming chat request under the request semaphore and
// records its usage.
func (c *GraphOllamaClient) chat(ctx context.Context, model string, msgs []api.Message, opts map[string]any) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
		Options:  opts,
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var (
		content string
		usage   api.Metrics
	)
	err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		content += cr.Message.Content
		if cr.Done {
			usage = cr.Metrics
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.Record(model, usage.PromptEvalCount, usage.EvalCount, usage.TotalDuration)
	return content, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.NewGenerateOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.3,
	}, opts...)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	texts := append([]string{prompt}, options.SystemPrompts...)
	return c.chat(ctx, options.Model, msgs, requestOptions(options, texts...))
}
