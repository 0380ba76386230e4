package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/richinex/toolsuite/llm"
	"github.com/richinex/toolsuite/prompt"
	"github.com/richinex/toolsuite/tools"
	"go.uber.org/zap"
)

// GenerateOptions selects the generator tool and its input.
type GenerateOptions struct {
	ToolID    string
	Input     string
	ImagePath string // input image for tools that accept one
	OutPath   string // where to write a generated image
	Stream    bool
	Markdown  bool // render text through glamour; disables streaming
}

// Generate runs one generator tool.
func Generate(ctx context.Context, g GenerateOptions, opts Options) error {
	registry, err := tools.WithDefaults()
	if err != nil {
		return err
	}
	tool, err := registry.Resolve(g.ToolID)
	if err != nil {
		return fmt.Errorf("%w (see 'toolsuite tools')", err)
	}
	if tool.Kind != tools.KindGenerator {
		return fmt.Errorf("tool %q is not a generator; use 'toolsuite %s'", tool.ID, tool.Kind)
	}
	if g.ImagePath != "" && !tool.AcceptsImage {
		return fmt.Errorf("tool %q does not take an input image", tool.ID)
	}
	if g.ImagePath == "" && tool.AcceptsImage {
		return fmt.Errorf("tool %q requires --image", tool.ID)
	}

	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	modality, err := llm.ParseModality(string(tool.Modality))
	if err != nil {
		return err
	}

	provider, err := rt.createProvider(modality)
	if err != nil {
		return err
	}

	client := prompt.New(provider,
		prompt.WithInstruction(tool.Instruction),
		prompt.WithModality(modality),
		prompt.WithTimeout(rt.settings.LLM.Timeout),
		prompt.WithLogger(rt.logger.With(zap.String("tool", tool.ID))),
	)

	if g.Stream && !g.Markdown && modality == llm.ModalityText && g.ImagePath == "" {
		return rt.stream(ctx, client, g.Input)
	}

	var result prompt.Result
	if g.ImagePath != "" {
		image, err := readImage(g.ImagePath)
		if err != nil {
			return err
		}
		result, err = client.GenerateWithImage(ctx, g.Input, image)
		if err != nil {
			return err
		}
	} else {
		result, err = client.Generate(ctx, g.Input)
		if err != nil {
			return err
		}
	}

	if result.IsImage() {
		path, err := writeImage(result, g.OutPath, tool.ID)
		if err != nil {
			return err
		}
		rt.printf("Image written to %s (%s)\n", path, result.MIMEType)
	}
	if result.Text != "" {
		text := result.Text
		if g.Markdown {
			if text, err = renderMarkdown(result.Text); err != nil {
				return err
			}
		}
		rt.printf("%s\n", strings.TrimRight(text, "\n"))
	}
	if rt.opts.Verbose && result.Usage != nil {
		rt.printf("\n(%d prompt + %d completion tokens)\n", result.Usage.PromptTokens, result.Usage.CompletionTokens)
	}
	return nil
}

func (rt *runtime) stream(ctx context.Context, client *prompt.Client, input string) error {
	chunks := make(chan string, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range chunks {
			rt.printf("%s", chunk)
		}
	}()

	err := client.Stream(ctx, input, chunks)
	close(chunks)
	<-done
	if err != nil {
		return err
	}
	rt.printf("\n")
	return nil
}

func renderMarkdown(text string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(text)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// readImage loads an input image and sniffs its MIME type.
func readImage(path string) (llm.InlineImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.InlineImage{}, fmt.Errorf("failed to read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return llm.InlineImage{}, fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	return llm.InlineImage{Data: data, MIMEType: mimeType}, nil
}

// writeImage decodes the result's data URI to path, or to <toolID><ext> when path is empty.
func writeImage(result prompt.Result, path, toolID string) (string, error) {
	data, err := decodeDataURI(result.ImageDataURI)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = toolID + imageExtension(result.MIMEType)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}

// Preferred extensions for the image types providers return.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func imageExtension(mimeType string) string {
	if ext, ok := imageExtensions[mimeType]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return ".png"
}

func decodeDataURI(uri string) ([]byte, error) {
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok || !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("malformed data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return data, nil
}
