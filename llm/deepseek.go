// DeepSeek Provider implementation using go-openai library.
//
// Information Hiding:
// - Uses OpenAI-compatible API with different base URL
// - Text only; image requests return ErrUnsupportedModality

package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float32) *DeepSeekProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = deepseekBaseURL

	return &DeepSeekProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// Model returns the current model.
func (p *DeepSeekProvider) Model() string {
	return p.model
}

// Generate sends a chat completion request.
func (p *DeepSeekProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if req.WantsImage() || req.Image != nil {
		return Response{}, ErrUnsupportedModality
	}
	return openaiChat(ctx, p.client, p.chatRequest(req))
}

// StreamGenerate streams a chat completion.
func (p *DeepSeekProvider) StreamGenerate(ctx context.Context, req Request, chunks chan<- string) (*TokenUsage, error) {
	if req.WantsImage() || req.Image != nil {
		return nil, ErrUnsupportedModality
	}
	return openaiStream(ctx, p.client, p.chatRequest(req), chunks)
}

func (p *DeepSeekProvider) chatRequest(req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:               p.model,
		Messages:            convertToOpenAIMessages(req),
		MaxCompletionTokens: p.maxTokens,
		Temperature:         p.temperature,
	}
}

// Verify DeepSeekProvider implements Provider
var _ Provider = (*DeepSeekProvider)(nil)
