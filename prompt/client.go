// Package prompt implements the prompt delegation client used by the
// generator tools: one fixed instruction, one user input, one provider call.
//
// Information Hiding:
// - Request composition (instruction prefix + quoted input)
// - Timeout and cancellation of the outbound call
// - Mapping of every provider failure to one GenerationError shape

package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richinex/toolsuite/llm"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

// Result is the transient output of one generation.
type Result struct {
	// Text is the generated text (text modality, or caption alongside an image).
	Text string
	// ImageDataURI is the generated image as a data: URI (image modality).
	ImageDataURI string
	// MIMEType is the declared MIME type of the generated image.
	MIMEType string
	// Usage is provider token accounting when available.
	Usage *llm.TokenUsage
}

// IsImage reports whether the result carries an image.
func (r Result) IsImage() bool {
	return r.ImageDataURI != ""
}

// Client wraps a Provider with a fixed instruction.
// Invocations are independent and safe for concurrent use.
type Client struct {
	provider    llm.Provider
	instruction string
	modality    llm.Modality
	timeout     time.Duration
	message     string
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithInstruction sets the tool-specific instruction prefix.
func WithInstruction(instruction string) Option {
	return func(c *Client) { c.instruction = instruction }
}

// WithModality selects text or image output.
func WithModality(m llm.Modality) Option {
	return func(c *Client) { c.modality = m }
}

// WithTimeout bounds each provider call. Zero disables the client-side bound;
// the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMessage overrides the user-facing failure message.
func WithMessage(msg string) Option {
	return func(c *Client) {
		if msg != "" {
			c.message = msg
		}
	}
}

// WithLogger sets the logger used for failure detail.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a new prompt client from a provider.
func New(provider llm.Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		modality: llm.ModalityText,
		timeout:  DefaultTimeout,
		message:  DefaultFailureMessage,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the underlying provider.
func (c *Client) Provider() llm.Provider {
	return c.provider
}

// Generate validates input and issues exactly one provider call.
func (c *Client) Generate(ctx context.Context, input string) (Result, error) {
	req, err := c.compose(input)
	if err != nil {
		return Result{}, err
	}
	return c.run(ctx, req)
}

// GenerateWithImage is Generate with an inline image attached to the request.
func (c *Client) GenerateWithImage(ctx context.Context, input string, image llm.InlineImage) (Result, error) {
	req, err := c.compose(input)
	if err != nil {
		return Result{}, err
	}
	if len(image.Data) == 0 {
		return Result{}, &ValidationError{Field: "image", Reason: "image is empty"}
	}
	req.Image = &image
	return c.run(ctx, req)
}

// Stream streams generated text to chunks. The channel is not closed.
func (c *Client) Stream(ctx context.Context, input string, chunks chan<- string) error {
	req, err := c.compose(input)
	if err != nil {
		return err
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	// Chunks pass through a relay so a stream with no content can be told apart.
	relay := make(chan string)
	sawContent := make(chan bool, 1)
	go func() {
		seen := false
		for chunk := range relay {
			if strings.TrimSpace(chunk) != "" {
				seen = true
			}
			chunks <- chunk
		}
		sawContent <- seen
	}()

	start := time.Now()
	usage, err := c.provider.StreamGenerate(ctx, req, relay)
	close(relay)
	seen := <-sawContent
	if err != nil {
		return c.fail(err, start)
	}
	if !seen {
		return c.fail(fmt.Errorf("%s: %w", c.provider.Name(), llm.ErrEmptyResponse), start)
	}
	c.logger.Debug("stream complete",
		zap.String("provider", c.provider.Name()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("usage", usage != nil))
	return nil
}

// Compose returns the provider-facing text for an input:
// the instruction prefix followed by the input in double quotes.
// The input is not escaped; only surrounding whitespace is trimmed.
func Compose(instruction, input string) string {
	quoted := `"` + strings.TrimSpace(input) + `"`
	if instruction == "" {
		return quoted
	}
	return instruction + " " + quoted
}

func (c *Client) compose(input string) (llm.Request, error) {
	if strings.TrimSpace(input) == "" {
		return llm.Request{}, &ValidationError{Field: "input", Reason: "please enter some text"}
	}
	return llm.Request{
		Input:    Compose(c.instruction, input),
		Modality: c.modality,
	}, nil
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) run(ctx context.Context, req llm.Request) (Result, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return Result{}, c.fail(err, start)
	}

	if req.WantsImage() {
		if resp.Image == nil || len(resp.Image.Data) == 0 {
			return Result{}, c.fail(fmt.Errorf("%s: %w", c.provider.Name(), llm.ErrEmptyResponse), start)
		}
		return Result{
			Text:         resp.Text,
			ImageDataURI: resp.Image.DataURI(),
			MIMEType:     resp.Image.MIMEType,
			Usage:        resp.Usage,
		}, nil
	}

	if strings.TrimSpace(resp.Text) == "" {
		return Result{}, c.fail(fmt.Errorf("%s: %w", c.provider.Name(), llm.ErrEmptyResponse), start)
	}
	return Result{Text: resp.Text, Usage: resp.Usage}, nil
}

// fail logs the provider detail and returns the uniform error.
func (c *Client) fail(cause error, start time.Time) error {
	reason := "provider_error"
	switch {
	case errors.Is(cause, llm.ErrEmptyResponse):
		reason = "empty_response"
	case errors.Is(cause, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(cause, context.Canceled):
		reason = "canceled"
	}

	c.logger.Warn("generation failed",
		zap.String("provider", c.provider.Name()),
		zap.String("model", c.provider.Model()),
		zap.String("reason", reason),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(cause))

	return &GenerationError{Message: c.message, cause: cause}
}
