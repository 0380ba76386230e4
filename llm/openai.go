// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions and Images APIs
// - Streaming via go-openai library

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	imageModel  string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(openai.DefaultConfig(apiKey), model, maxTokens, temperature)
}

// NewOpenAIProviderWithConfig creates an OpenAI provider from a go-openai client config.
// Used for OpenAI-compatible endpoints and for tests against a local server.
func NewOpenAIProviderWithConfig(config openai.ClientConfig, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		imageModel:  openai.CreateImageModelDallE3,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// WithImageModel sets the model used for image generation requests.
func (p *OpenAIProvider) WithImageModel(model string) *OpenAIProvider {
	if model != "" {
		p.imageModel = model
	}
	return p
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Generate sends a chat completion request, or an image request for image modality.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if req.WantsImage() {
		return p.generateImage(ctx, req)
	}
	return openaiChat(ctx, p.client, p.chatRequest(req))
}

// StreamGenerate streams a chat completion.
func (p *OpenAIProvider) StreamGenerate(ctx context.Context, req Request, chunks chan<- string) (*TokenUsage, error) {
	if req.WantsImage() {
		return nil, ErrUnsupportedModality
	}
	return openaiStream(ctx, p.client, p.chatRequest(req), chunks)
}

func (p *OpenAIProvider) chatRequest(req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    convertToOpenAIMessages(req),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}
}

func (p *OpenAIProvider) generateImage(ctx context.Context, req Request) (Response, error) {
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Input,
		Model:          p.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return Response{}, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Response{}, fmt.Errorf("openai: no image data: %w", ErrEmptyResponse)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Response{}, fmt.Errorf("openai: decode image payload: %w", err)
	}

	return Response{Image: &InlineImage{Data: data, MIMEType: "image/png"}}, nil
}

// openaiChat runs a non-streaming chat completion against any OpenAI-compatible client.
func openaiChat(ctx context.Context, client *openai.Client, req openai.ChatCompletionRequest) (Response, error) {
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if content == "" {
		return Response{}, fmt.Errorf("chat completion: %w", ErrEmptyResponse)
	}

	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return Response{Text: content, Usage: usage}, nil
}

// openaiStream runs a streaming chat completion against any OpenAI-compatible client.
func openaiStream(ctx context.Context, client *openai.Client, req openai.ChatCompletionRequest, chunks chan<- string) (*TokenUsage, error) {
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stream creation failed: %w", err)
	}
	defer stream.Close()

	var usage *TokenUsage
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return usage, nil
		}
		if err != nil {
			return usage, fmt.Errorf("stream recv failed: %w", err)
		}

		// Capture token usage from final chunk
		if response.Usage != nil {
			usage = &TokenUsage{
				PromptTokens:     uint32(response.Usage.PromptTokens),
				CompletionTokens: uint32(response.Usage.CompletionTokens),
				TotalTokens:      uint32(response.Usage.TotalTokens),
			}
		}

		if len(response.Choices) > 0 {
			content := response.Choices[0].Delta.Content
			if content != "" {
				select {
				case chunks <- content:
				case <-ctx.Done():
					return usage, ctx.Err()
				}
			}
		}
	}
}

// convertToOpenAIMessages converts a Request into a single user chat message.
// An inline image is sent as a data URI image part.
func convertToOpenAIMessages(req Request) []openai.ChatCompletionMessage {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Image != nil && len(req.Image.Data) > 0 {
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Input},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: req.Image.DataURI()}},
		}
	} else {
		user.Content = req.Input
	}

	return []openai.ChatCompletionMessage{user}
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
