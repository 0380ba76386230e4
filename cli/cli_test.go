package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/richinex/toolsuite/llm"
	"github.com/richinex/toolsuite/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedProvider struct {
	requests []llm.Request
	resp     llm.Response
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	p.requests = append(p.requests, req)
	return p.resp, nil
}

func (p *scriptedProvider) StreamGenerate(ctx context.Context, req llm.Request, chunks chan<- string) (*llm.TokenUsage, error) {
	p.requests = append(p.requests, req)
	for _, part := range strings.SplitAfter(p.resp.Text, " ") {
		chunks <- part
	}
	return nil, nil
}

// testOptions isolates a command from the host environment and disk.
func testOptions(t *testing.T, out io.Writer) Options {
	t.Helper()
	for _, key := range []string{"LLM_PROVIDER", "STORAGE_BACKEND", "DISPATCH_OPENER", "DISPATCH_LINK_BASE", "DISPATCH_DELAY"} {
		t.Setenv(key, "")
	}
	t.Setenv("AUTOSAVE_DELAY_MS", "20")
	t.Setenv("AUTOSAVE_SAVED_WINDOW_MS", "20")

	return Options{
		Out:    out,
		In:     strings.NewReader(""),
		store:  storage.NewInMemoryStorage(),
		logger: zap.NewNop(),
	}
}

func TestListTools(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, ListTools(&out, false))
	assert.Contains(t, out.String(), "AI Writing:")
	assert.Contains(t, out.String(), "bulk-messaging")

	out.Reset()
	require.NoError(t, ListTools(&out, true))
	assert.Contains(t, out.String(), "output: image")
}

func TestGenerateText(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	provider := &scriptedProvider{resp: llm.Response{Text: "A short summary."}}
	opts.provider = provider

	err := Generate(context.Background(), GenerateOptions{ToolID: "summarize", Input: "  long text  "}, opts)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "A short summary.")
	require.Len(t, provider.requests, 1)
	assert.True(t, strings.HasSuffix(provider.requests[0].Input, `"long text"`))
	assert.True(t, strings.HasPrefix(provider.requests[0].Input, "Summarize"))
}

func TestGenerateStream(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	opts.provider = &scriptedProvider{resp: llm.Response{Text: "one two three"}}

	err := Generate(context.Background(), GenerateOptions{ToolID: "paraphrase", Input: "x", Stream: true}, opts)
	require.NoError(t, err)
	assert.Equal(t, "one two three\n", out.String())
}

func TestGenerateBlankInputMakesNoCall(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	provider := &scriptedProvider{}
	opts.provider = provider

	err := Generate(context.Background(), GenerateOptions{ToolID: "summarize", Input: "   "}, opts)
	require.Error(t, err)
	assert.Empty(t, provider.requests)
}

func TestGenerateImageWritesFile(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	opts.provider = &scriptedProvider{resp: llm.Response{Image: &llm.InlineImage{Data: png, MIMEType: "image/png"}}}

	path := filepath.Join(t.TempDir(), "cat.png")
	err := Generate(context.Background(), GenerateOptions{ToolID: "image-generator", Input: "a cat", OutPath: path}, opts)
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, written)
	assert.Contains(t, out.String(), "Image written to "+path)
}

func TestGenerateRejectsWrongTool(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	opts.provider = &scriptedProvider{}

	assert.Error(t, Generate(context.Background(), GenerateOptions{ToolID: "notes", Input: "x"}, opts))
	assert.Error(t, Generate(context.Background(), GenerateOptions{ToolID: "nope", Input: "x"}, opts))
	assert.Error(t, Generate(context.Background(), GenerateOptions{ToolID: "image-caption", Input: "x"}, opts), "image required")
}

func TestDispatchDryRun(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)

	err := Dispatch(context.Background(), DispatchOptions{
		To:      []string{"+1 (202) 555-0123, 44 20 7946 0958"},
		Message: "hi there",
		Opener:  "dry-run",
		Delay:   1,
	}, opts)
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "processing 1 of 2: 12025550123")
	assert.Contains(t, output, "https://wa.me/12025550123?text=hi+there")
	assert.Contains(t, output, "https://wa.me/442079460958?text=hi+there")
	assert.Contains(t, output, "finished, 2 processed")
}

func TestDispatchWithTemplate(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)

	err := Dispatch(context.Background(), DispatchOptions{
		To:         []string{"1"},
		TemplateID: "thanks",
		Opener:     "dry-run",
	}, opts)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "https://wa.me/1?text=Thank+you+for+your+business")
}

func TestDispatchValidation(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)

	err := Dispatch(context.Background(), DispatchOptions{Message: "hi", Opener: "dry-run"}, opts)
	require.Error(t, err)
	assert.NotContains(t, out.String(), "https://")
}

func TestTemplatesCommands(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	ctx := context.Background()

	require.NoError(t, TemplatesAdd(ctx, "Promo", "Sale starts Monday", opts))
	require.NoError(t, TemplatesList(ctx, opts))
	assert.Contains(t, out.String(), "Promo")
	assert.Contains(t, out.String(), "greeting")

	require.NoError(t, TemplatesUpdate(ctx, "greeting", "Hi", "Hey there", opts))
	require.NoError(t, TemplatesRemove(ctx, "reminder", opts))

	out.Reset()
	require.NoError(t, TemplatesList(ctx, opts))
	assert.Contains(t, out.String(), "Hey there")
	assert.NotContains(t, out.String(), "reminder")

	assert.Error(t, TemplatesRemove(ctx, "missing", opts))
}

func TestNotesEditShowClear(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	opts.In = strings.NewReader("first line\nsecond line\n:undo\nthird line\n:q\nignored\n")
	ctx := context.Background()

	require.NoError(t, NotesEdit(ctx, opts))

	value, ok, err := opts.store.Get(ctx, storage.KeyNotes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first line\nthird line", value)

	out.Reset()
	require.NoError(t, NotesShow(ctx, opts))
	assert.Equal(t, "first line\nthird line\n", out.String())

	out.Reset()
	require.NoError(t, NotesClear(ctx, opts))
	assert.Equal(t, "Cleared\n", out.String())

	_, ok, err = opts.store.Get(ctx, storage.KeyNotes)
	require.NoError(t, err)
	assert.False(t, ok)
}

// safeBuffer is a bytes.Buffer that may be read while a command writes to it.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNotesEditPicksUpExternalChanges(t *testing.T) {
	opts := testOptions(t, nil)
	out := &safeBuffer{}
	opts.Out = out

	dir, err := storage.OpenDir(t.TempDir())
	require.NoError(t, err)
	opts.store = dir

	reader, writer := io.Pipe()
	opts.In = reader

	done := make(chan error, 1)
	go func() { done <- NotesEdit(context.Background(), opts) }()

	// The watcher starts after the banner, so keep writing until a reload shows up.
	n := 0
	require.Eventually(t, func() bool {
		n++
		require.NoError(t, dir.Set(context.Background(), storage.KeyNotes, fmt.Sprintf("from elsewhere %d", n)))
		return strings.Contains(out.String(), "[reloaded]")
	}, 5*time.Second, 50*time.Millisecond)

	_, err = writer.Write([]byte(":q\n"))
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.NoError(t, writer.Close())
	assert.Contains(t, out.String(), "from elsewhere")
}
