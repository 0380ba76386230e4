// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Streaming via official SDK

package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
// Text output only; image input is accepted as a base64 image block.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float32, opts ...option.RequestOption) *AnthropicProvider {
	client := anthropic.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	return &AnthropicProvider{
		client:      client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Generate sends a single Messages API request.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if req.WantsImage() {
		return Response{}, ErrUnsupportedModality
	}

	message, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return Response{}, fmt.Errorf("message request failed: %w", err)
	}

	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}
	if content == "" {
		return Response{}, fmt.Errorf("anthropic: stop reason %q: %w", message.StopReason, ErrEmptyResponse)
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return Response{Text: content, Usage: usage}, nil
}

// StreamGenerate streams a text generation.
func (p *AnthropicProvider) StreamGenerate(ctx context.Context, req Request, chunks chan<- string) (*TokenUsage, error) {
	if req.WantsImage() {
		return nil, ErrUnsupportedModality
	}

	stream := p.client.Messages.NewStreaming(ctx, p.params(req))

	var usage *TokenUsage
	for stream.Next() {
		event := stream.Current()

		switch eventVariant := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			if eventVariant.Message.Usage.InputTokens > 0 {
				usage = &TokenUsage{
					PromptTokens: uint32(eventVariant.Message.Usage.InputTokens),
				}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text != "" {
					select {
					case chunks <- deltaVariant.Text:
					case <-ctx.Done():
						return usage, ctx.Err()
					}
				}
			}
		case anthropic.MessageDeltaEvent:
			if eventVariant.Usage.OutputTokens > 0 {
				if usage == nil {
					usage = &TokenUsage{}
				}
				usage.CompletionTokens = uint32(eventVariant.Usage.OutputTokens)
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			}
		}
	}

	if stream.Err() != nil {
		return usage, fmt.Errorf("stream error: %w", stream.Err())
	}

	return usage, nil
}

func (p *AnthropicProvider) params(req Request) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    []anthropic.MessageParam{anthropicUserMessage(req)},
		Temperature: anthropic.Float(p.temperature),
	}
}

// anthropicUserMessage builds the single user turn; the image block goes first.
func anthropicUserMessage(req Request) anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	if req.Image != nil && len(req.Image.Data) > 0 {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			req.Image.MIMEType,
			base64.StdEncoding.EncodeToString(req.Image.Data),
		))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Input))
	return anthropic.NewUserMessage(blocks...)
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
