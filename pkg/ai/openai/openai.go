package openai

import (
	"github.com/pinewilt/kgcurate/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// GraphOpenAIClient talks to any OpenAI-compatible endpoint (OpenAI,
// Moonshot/Kimi, vLLM, ...). Chat and image requests may target different
// endpoints and keys.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	chatModel  string
	imageModel string

	chatURL  string
	imageURL string

	imageLock *semaphore.Weighted

	ai.UsageMeter

	ChatClient  *openai.Client
	ImageClient *openai.Client
}

var _ ai.GraphAIClient = (*GraphOpenAIClient)(nil)

// NewGraphOpenAIClientParams defines the configuration parameters for creating
// a new GraphOpenAIClient.
//
// ChatURL and ChatKey configure the completion endpoint, ImageURL and
// ImageKey the vision endpoint. An empty key leaves that client nil.
type NewGraphOpenAIClientParams struct {
	ChatModel  string
	ImageModel string

	ChatURL  string
	ChatKey  string
	ImageURL string
	ImageKey string

	MaxConcurrentImages int64
}

// NewGraphOpenAIClient creates a client from params.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ChatModel: "moonshot-v1-8k",
//		ChatURL:   "https://api.moonshot.cn/v1",
//		ChatKey:   os.Getenv("MOONSHOT_API_KEY"),
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	maxImages := params.MaxConcurrentImages
	if maxImages <= 0 {
		maxImages = 2
	}

	return &GraphOpenAIClient{
		UsageMeter: ai.UsageMeter{Provider: "openai"},

		chatModel:  params.ChatModel,
		imageModel: params.ImageModel,

		chatURL:  params.ChatURL,
		imageURL: params.ImageURL,

		imageLock: semaphore.NewWeighted(maxImages),

		ChatClient:  newOpenaiClient(params.ChatURL, params.ChatKey),
		ImageClient: newOpenaiClient(params.ImageURL, params.ImageKey),
	}
}

// HasChat reports whether a completion endpoint is configured.
func (c *GraphOpenAIClient) HasChat() bool {
	return c != nil && c.ChatClient != nil
}

// HasImage reports whether a vision endpoint is configured.
func (c *GraphOpenAIClient) HasImage() bool {
	return c != nil && c.ImageClient != nil
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	// Callers own retries and fallbacks; the SDK default of 3 retries would
	// multiply every failed request.
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
