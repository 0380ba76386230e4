// Package llm provides shared data models for generation providers.
package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Modality selects what kind of content a request asks the provider for.
type Modality string

const (
	// ModalityText asks for a text answer.
	ModalityText Modality = "text"
	// ModalityImage asks for a single inline image.
	ModalityImage Modality = "image"
)

// String returns the string representation of the modality.
func (m Modality) String() string {
	return string(m)
}

// ParseModality parses a modality name. An empty string means text.
func ParseModality(s string) (Modality, error) {
	switch s {
	case "", "text":
		return ModalityText, nil
	case "image":
		return ModalityImage, nil
	default:
		return "", fmt.Errorf("unknown modality: %q", s)
	}
}

var (
	// ErrEmptyResponse is returned when the provider answered without usable content,
	// for example a safety-filtered candidate with no parts.
	ErrEmptyResponse = errors.New("provider returned no content")

	// ErrUnsupportedModality is returned when a provider cannot produce the requested modality.
	ErrUnsupportedModality = errors.New("modality not supported by provider")
)

// InlineImage is raw image bytes with their declared MIME type.
type InlineImage struct {
	Data     []byte
	MIMEType string
}

// DataURI encodes the image as a data: URI.
func (img InlineImage) DataURI() string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Request is a single generation call.
type Request struct {
	// Input is the composed user content, instruction prefix included.
	Input string
	// Image is optional inline image input.
	Image *InlineImage
	// Modality is the requested output kind. Empty means text.
	Modality Modality
}

// WantsImage reports whether the request asks for an image.
func (r Request) WantsImage() bool {
	return r.Modality == ModalityImage
}

// Response represents a response from a generation provider.
type Response struct {
	Text  string
	Image *InlineImage
	Usage *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
